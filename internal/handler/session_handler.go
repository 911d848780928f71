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
	"github.com/edukit/paperflow-backend/internal/session"
	"github.com/edukit/paperflow-backend/internal/validator"
)

// SessionHandler handles the REST surface of the answering session.
// The WebSocket stream covers the same operations for connected
// devices; REST exists for reconnect recovery and non-streaming
// clients.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Join godoc
// POST /api/v1/student/exams/:exam_id/join
// Creates or resumes the student's session and returns the paper plus
// the current session snapshot.
func (h *SessionHandler) Join(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	paper, snap, err := h.sessionService.Join(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper":   paper,
		"session": snap,
	})
}

// State godoc
// GET /api/v1/student/exams/:exam_id/session
// Returns the current session snapshot.
func (h *SessionHandler) State(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.State(examID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Transition godoc
// POST /api/v1/student/exams/:exam_id/transition
// Moves the active item pointer.
func (h *SessionHandler) Transition(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.TransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.TransitionTo(c.Request.Context(), examID, claims.UserID, req.ItemID); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "ok"})
}

// Answer godoc
// POST /api/v1/student/exams/:exam_id/answer
// Records an answer value for an item.
func (h *SessionHandler) Answer(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Answer(c.Request.Context(), examID, claims.UserID, &req); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "saved"})
}

// Commit godoc
// POST /api/v1/student/exams/:exam_id/commit
// Marks an item done with a self-assessment status.
func (h *SessionHandler) Commit(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.CommitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Commit(c.Request.Context(), examID, claims.UserID, req.ItemID, session.Status(req.Status)); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "committed"})
}

// Skip godoc
// POST /api/v1/student/exams/:exam_id/skip
// Tags an item as deliberately deferred.
func (h *SessionHandler) Skip(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.SkipRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Skip(c.Request.Context(), examID, claims.UserID, req.ItemID); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "skipped"})
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/submit
// Ends the session, scores it, and returns the report.
func (h *SessionHandler) Submit(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	rep, err := h.sessionService.Submit(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"report": rep})
}

// Report godoc
// GET /api/v1/student/exams/:exam_id/report
// Returns the stored submission report for a completed session. The
// report worker persists asynchronously, so a request racing the submit
// may get REPORT_NOT_READY and should retry.
func (h *SessionHandler) Report(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	rep, err := h.sessionService.Report(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"report": rep})
}

// studentAndExam pulls the authenticated claims and the exam_id path
// param, failing the request when either is missing.
func studentAndExam(c *gin.Context) (*middleware.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, examID, true
}

// failSessionError maps session domain errors onto HTTP responses.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveSession)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrReportNotReady):
		response.Fail(c, http.StatusNotFound, response.ErrReportNotReady)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
