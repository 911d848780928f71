package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edukit/paperflow-backend/internal/middleware"
	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/response"
	"github.com/edukit/paperflow-backend/internal/service"
	"github.com/edukit/paperflow-backend/internal/validator"
)

// ExamHandler handles exam authoring endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListPublished godoc
// GET /api/v1/exams
// Lists the exams students can currently join.
func (h *ExamHandler) ListPublished(c *gin.Context) {
	exams, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/author/exams
// Creates a new draft exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := &model.Exam{
		Title:           req.Title,
		AuthorID:        claims.UserID,
		DurationMinutes: req.DurationMinutes,
	}

	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// AddProblem godoc
// POST /api/v1/author/exams/:exam_id/problems
// Appends a problem to a draft exam.
func (h *ExamHandler) AddProblem(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddProblemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	problem := &model.Problem{
		Text:           req.Text,
		Kind:           model.ProblemKind(req.Kind),
		Options:        req.Options,
		CorrectAnswers: req.CorrectAnswers,
		CorrectText:    req.CorrectText,
		Solution:       req.Solution,
		Difficulty:     model.Difficulty(req.Difficulty),
		OrderNum:       req.OrderNum,
	}

	if err := h.examService.AddProblem(c.Request.Context(), examID, claims.UserID, problem); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"problem": problem})
}

// PublishExam godoc
// POST /api/v1/author/exams/:exam_id/publish
// Publishes an exam: assembles the paper, caches paper + answer key to
// Redis, changes status.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID, claims.UserID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam published successfully"})
}

// RefreshCache godoc
// POST /api/v1/author/exams/:exam_id/refresh-cache
// Re-assembles and re-caches the paper for a published exam.
func (h *ExamHandler) RefreshCache(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.RefreshCache(c.Request.Context(), examID, claims.UserID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "cache refreshed"})
}

// failExamError maps exam domain errors onto HTTP responses.
func failExamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrNoProblems):
		response.Fail(c, http.StatusBadRequest, response.ErrNoProblems)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotPublished)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
