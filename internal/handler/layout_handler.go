package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/response"
	"github.com/edukit/paperflow-backend/internal/service"
	"github.com/edukit/paperflow-backend/internal/validator"
)

// LayoutHandler handles the REST surface of the layout coordinator.
// Height reports normally arrive over the WebSocket stream; these
// endpoints serve reconnect recovery and the coarser control toggles.
type LayoutHandler struct {
	layoutService *service.LayoutService
}

// NewLayoutHandler creates a new LayoutHandler.
func NewLayoutHandler(layoutService *service.LayoutService) *LayoutHandler {
	return &LayoutHandler{layoutService: layoutService}
}

// Document godoc
// GET /api/v1/student/exams/:exam_id/layout
// Returns the most recently computed layout.
func (h *LayoutHandler) Document(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	doc, err := h.layoutService.Document(examID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"layout": doc})
}

// ReportHeight godoc
// POST /api/v1/student/exams/:exam_id/layout/heights
// Records one rendered-height measurement.
func (h *LayoutHandler) ReportHeight(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.HeightReport
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.layoutService.ReportHeight(examID, claims.UserID, req.ItemID, req.Height); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "recorded"})
}

// SetLock godoc
// POST /api/v1/student/exams/:exam_id/layout/lock
// Toggles the drag-control gate.
func (h *LayoutHandler) SetLock(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.InteractionLockRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.layoutService.SetInteractionLocked(examID, claims.UserID, req.Locked); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "ok"})
}

// SetEditing godoc
// POST /api/v1/student/exams/:exam_id/layout/editing
// Marks an item's inline editor open or closed.
func (h *LayoutHandler) SetEditing(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	var req model.EditingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.layoutService.SetEditing(examID, claims.UserID, req.ItemID, req.Editing); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "ok"})
}

// Invalidate godoc
// POST /api/v1/student/exams/:exam_id/layout/invalidate
// Marks the layout provisional after a layout-affecting control change.
func (h *LayoutHandler) Invalidate(c *gin.Context) {
	claims, examID, ok := studentAndExam(c)
	if !ok {
		return
	}

	if err := h.layoutService.Invalidate(examID, claims.UserID); err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "ok"})
}
