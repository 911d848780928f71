package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	AuthorID        int        `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// PaperItem is one layout unit of the assembled exam paper sent to the
// device: the problem statement (without canonical answers) or one
// derived solution chunk.
type PaperItem struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	ParentID   string          `json:"parent_id,omitempty"`
	Text       string          `json:"text"`
	Options    json.RawMessage `json:"options,omitempty"`
	AnswerKind ProblemKind     `json:"answer_kind,omitempty"`
	Difficulty Difficulty      `json:"difficulty,omitempty"`
}

// ExamPaper is the Redis-cached payload sent to students: the ordered
// item selection the layout coordinator paginates.
type ExamPaper struct {
	ExamID          uuid.UUID   `json:"exam_id"`
	Title           string      `json:"title"`
	DurationMinutes int         `json:"duration_minutes"`
	Items           []PaperItem `json:"items"`
}
