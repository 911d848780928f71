package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/database"
	"github.com/edukit/paperflow-backend/internal/handler"
	"github.com/edukit/paperflow-backend/internal/logger"
	"github.com/edukit/paperflow-backend/internal/repository"
	"github.com/edukit/paperflow-backend/internal/router"
	"github.com/edukit/paperflow-backend/internal/service"
	"github.com/edukit/paperflow-backend/internal/validator"
	"github.com/edukit/paperflow-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting PaperFlow Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	problemRepo := repository.NewProblemRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	examService := service.NewExamService(examRepo, problemRepo, rdb, log)
	sessionService := service.NewSessionService(sessionRepo, reportRepo, examService, rdb, cfg.Session, log)
	layoutService := service.NewLayoutService(cfg.Layout, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(examService),
		Session: handler.NewSessionHandler(sessionService),
		Layout:  handler.NewLayoutHandler(layoutService),
		WS:      handler.NewWSHandler(examService, sessionService, layoutService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewSnapshotWorker(sessionRepo, rdb, log)
	reportWorker := worker.NewReportWorker(reportRepo, sessionRepo, rdb, log)

	go snapshotWorker.Start(workerCtx)
	go reportWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Release live controllers and coordinators. Sessions survive in
	// Redis and resume on the next join.
	sessionService.Shutdown()
	layoutService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
