package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ProblemKind determines how a problem is answered and scored.
type ProblemKind string

const (
	// ProblemSingleSelect expects exactly one option.
	ProblemSingleSelect ProblemKind = "SINGLE_SELECT"
	// ProblemMultiSelect expects a set of options; scoring is exact set
	// equality, no partial credit.
	ProblemMultiSelect ProblemKind = "MULTI_SELECT"
	// ProblemFreeText expects a short text answer compared after
	// trimming.
	ProblemFreeText ProblemKind = "FREE_TEXT"
	// ProblemOpenResponse is never auto-scored.
	ProblemOpenResponse ProblemKind = "OPEN_RESPONSE"
)

// Selectable reports whether the answer is an option set.
func (k ProblemKind) Selectable() bool {
	return k == ProblemSingleSelect || k == ProblemMultiSelect
}

// Scorable reports whether the kind can be auto-scored.
func (k ProblemKind) Scorable() bool {
	return k != ProblemOpenResponse
}

// Difficulty buckets problems for per-bucket accuracy reporting.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Problem is a single exam problem.
type Problem struct {
	ID             uuid.UUID       `json:"id"`
	ExamID         uuid.UUID       `json:"exam_id"`
	Text           string          `json:"text"`
	Kind           ProblemKind     `json:"kind"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswers []string        `json:"correct_answers,omitempty"`
	CorrectText    string          `json:"correct_text,omitempty"`
	// Solution is the worked solution; blank-line separated sections
	// paginate as independent chunks on the solution pages.
	Solution   string     `json:"solution,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	OrderNum   int        `json:"order_num"`
}

// AddProblemRequest is the payload for adding a problem to an exam.
type AddProblemRequest struct {
	Text           string          `json:"text" binding:"required,min=1,max=4000"`
	Kind           string          `json:"kind" binding:"required,oneof=SINGLE_SELECT MULTI_SELECT FREE_TEXT OPEN_RESPONSE"`
	Options        json.RawMessage `json:"options" binding:"omitempty"`
	CorrectAnswers []string        `json:"correct_answers" binding:"omitempty,max=10"`
	CorrectText    string          `json:"correct_text" binding:"omitempty,max=2000"`
	Solution       string          `json:"solution" binding:"omitempty,max=20000"`
	Difficulty     string          `json:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
	OrderNum       int             `json:"order_num" binding:"min=0"`
}
