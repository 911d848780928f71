package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates answering-session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// ExamSession represents a student's exam attempt.
type ExamSession struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	StudentID  int           `json:"student_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     SessionStatus `json:"status"`
	FinalScore *float64      `json:"final_score,omitempty"`
}

// TransitionRequest moves the active item pointer (navigation click or
// scroll-into-view).
type TransitionRequest struct {
	ItemID string `json:"item_id" binding:"required,max=128"`
}

// AnswerRequest records an answer value for an item. Selectable items
// send values; free-text items send text.
type AnswerRequest struct {
	ItemID string   `json:"item_id" binding:"required,max=128"`
	Values []string `json:"values" binding:"omitempty,max=20"`
	Text   *string  `json:"text" binding:"omitempty,max=20000"`
}

// CommitRequest marks an item done with a self-assessment status.
type CommitRequest struct {
	ItemID string `json:"item_id" binding:"required,max=128"`
	Status string `json:"status" binding:"required,oneof=CONFIDENT UNSURE GUESSED"`
}

// SkipRequest tags an item as deliberately deferred.
type SkipRequest struct {
	ItemID string `json:"item_id" binding:"required,max=128"`
}

// HeightReport is one rendered-height measurement from the device.
type HeightReport struct {
	ItemID string  `json:"item_id" binding:"required,max=128"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

// InteractionLockRequest toggles the layout coordinator's drag gate.
type InteractionLockRequest struct {
	Locked bool `json:"locked"`
}

// EditingRequest marks an item's inline editor open or closed.
type EditingRequest struct {
	ItemID  string `json:"item_id" binding:"required,max=128"`
	Editing bool   `json:"editing"`
}
