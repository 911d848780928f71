package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/handler"
	"github.com/edukit/paperflow-backend/internal/middleware"
	"github.com/edukit/paperflow-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Session *handler.SessionHandler
	Layout  *handler.LayoutHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the public exam listing (60 requests per minute per IP).
	publicLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Public Group ───────────────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	publicAPI.Use(publicLimiter.Middleware())
	{
		publicAPI.GET("/exams", handlers.Exam.ListPublished)
	}

	// ─── 2. Author Group (JWT) ─────────────────────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireAuthorJWT(cfg.JWTSecret))
	{
		authorAPI.POST("/exams", handlers.Exam.CreateExam)
		authorAPI.POST("/exams/:exam_id/problems", handlers.Exam.AddProblem)
		authorAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		authorAPI.POST("/exams/:exam_id/refresh-cache", handlers.Exam.RefreshCache)
	}

	// ─── 3. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(cfg.JWTSecret))
	{
		studentAPI.POST("/exams/:exam_id/join", handlers.Session.Join)
		studentAPI.GET("/exams/:exam_id/session", handlers.Session.State)
		studentAPI.POST("/exams/:exam_id/transition", handlers.Session.Transition)
		studentAPI.POST("/exams/:exam_id/answer", handlers.Session.Answer)
		studentAPI.POST("/exams/:exam_id/commit", handlers.Session.Commit)
		studentAPI.POST("/exams/:exam_id/skip", handlers.Session.Skip)
		studentAPI.POST("/exams/:exam_id/submit", handlers.Session.Submit)
		studentAPI.GET("/exams/:exam_id/report", handlers.Session.Report)

		studentAPI.GET("/exams/:exam_id/layout", handlers.Layout.Document)
		studentAPI.POST("/exams/:exam_id/layout/heights", handlers.Layout.ReportHeight)
		studentAPI.POST("/exams/:exam_id/layout/lock", handlers.Layout.SetLock)
		studentAPI.POST("/exams/:exam_id/layout/editing", handlers.Layout.SetEditing)
		studentAPI.POST("/exams/:exam_id/layout/invalidate", handlers.Layout.Invalidate)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(cfg.JWTSecret))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamStream)
	}

	return router
}
