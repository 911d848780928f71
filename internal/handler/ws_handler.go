package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/layout"
	"github.com/edukit/paperflow-backend/internal/middleware"
	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/service"
	"github.com/edukit/paperflow-backend/internal/session"
	ws "github.com/edukit/paperflow-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the answering session: height reports and session
// mutations flow up, recomputed layouts and the final report flow down.
type WSHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
	layoutService  *service.LayoutService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	examService *service.ExamService,
	sessionService *service.SessionService,
	layoutService *service.LayoutService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		examService:    examService,
		sessionService: sessionService,
		layoutService:  layoutService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket. The student must have joined the exam first.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}
	studentID := claims.UserID

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	// The live controller must exist before streaming: join is a REST
	// concern, the stream only mutates.
	if _, err := h.sessionService.State(examID, studentID); err != nil {
		conn.WriteError("no active session for this exam")
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID)
	if err != nil {
		conn.WriteError("exam paper unavailable")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	// Every recomputed layout pushes to this device. The publish
	// callback runs under the coordinator's lock, so it only writes.
	h.layoutService.Open(examID, studentID, paper, func(doc layout.Document) {
		if err := conn.WriteTyped(ws.LayoutResponse{Event: ws.EventLayout, Layout: doc}); err != nil {
			wsLog.Debug().Err(err).Msg("Layout push failed")
		}
	})
	defer h.layoutService.Close(examID, studentID)

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if done := h.dispatch(c.Request.Context(), conn, wsLog, examID, studentID, &msg); done {
			return
		}
	}
}

// dispatch routes one client message. Returns true when the stream
// should end (submit completed).
func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, examID uuid.UUID, studentID int, msg *ws.RequestPayload) bool {
	var err error

	switch msg.Action {
	case ws.ActionReportHeight:
		if msg.ItemID == "" || msg.Height <= 0 {
			conn.WriteError("item_id and a positive height are required")
			return false
		}
		// Height bursts are high-frequency; no per-message ack.
		err = h.layoutService.ReportHeight(examID, studentID, msg.ItemID, msg.Height)
		if err == nil {
			return false
		}

	case ws.ActionTransition:
		err = h.sessionService.TransitionTo(ctx, examID, studentID, msg.ItemID)

	case ws.ActionAnswer:
		err = h.sessionService.Answer(ctx, examID, studentID, &model.AnswerRequest{
			ItemID: msg.ItemID,
			Values: msg.Values,
			Text:   msg.Text,
		})

	case ws.ActionCommit:
		err = h.sessionService.Commit(ctx, examID, studentID, msg.ItemID, session.Status(msg.Status))

	case ws.ActionSkip:
		err = h.sessionService.Skip(ctx, examID, studentID, msg.ItemID)

	case ws.ActionLock:
		err = h.layoutService.SetInteractionLocked(examID, studentID, msg.Locked)

	case ws.ActionEditing:
		err = h.layoutService.SetEditing(examID, studentID, msg.ItemID, msg.Editing)

	case ws.ActionInvalidate:
		err = h.layoutService.Invalidate(examID, studentID)

	case ws.ActionSubmit:
		rep, submitErr := h.sessionService.Submit(ctx, examID, studentID)
		if submitErr != nil {
			wsLog.Error().Err(submitErr).Msg("Submit failed")
			conn.WriteError("submit failed")
			return false
		}
		wsLog.Info().Float64("correct_rate", rep.CorrectRate).Msg("Exam submitted")
		conn.WriteTyped(ws.ReportResponse{Event: ws.EventReport, Status: "completed", Report: rep})
		return true

	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		return false

	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		conn.WriteError("unknown action: " + string(msg.Action))
		return false
	}

	if err != nil {
		wsLog.Error().Err(err).Str("action", string(msg.Action)).Msg("Action failed")
		conn.WriteError(string(msg.Action) + " failed")
		return false
	}
	conn.WriteTyped(ws.AckResponse{Event: ws.EventAck, Action: msg.Action})
	return false
}
