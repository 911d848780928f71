package report

import (
	"strings"
	"time"

	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/session"
)

// ItemDef is the scoring-relevant definition of one exam item.
type ItemDef struct {
	ID             string            `json:"id"`
	Kind           model.ProblemKind `json:"kind"`
	Difficulty     model.Difficulty  `json:"difficulty"`
	CorrectAnswers []string          `json:"correct_answers,omitempty"`
	CorrectText    string            `json:"correct_text,omitempty"`
}

// DefsFromProblems extracts scoring definitions from problems, in
// document order.
func DefsFromProblems(problems []model.Problem) []ItemDef {
	defs := make([]ItemDef, 0, len(problems))
	for _, p := range problems {
		defs = append(defs, ItemDef{
			ID:             p.ID.String(),
			Kind:           p.Kind,
			Difficulty:     p.Difficulty,
			CorrectAnswers: p.CorrectAnswers,
			CorrectText:    p.CorrectText,
		})
	}
	return defs
}

// ItemResult is the scored outcome for one item.
type ItemResult struct {
	ItemID string `json:"item_id"`
	// IsCorrect is nil for open-response items, which are never
	// auto-scored.
	IsCorrect          *bool          `json:"is_correct"`
	SubmittedValues    []string       `json:"submitted_values,omitempty"`
	SubmittedText      string         `json:"submitted_text,omitempty"`
	Status             session.Status `json:"status,omitempty"`
	Skipped            bool           `json:"skipped,omitempty"`
	ElapsedSeconds     float64        `json:"elapsed_seconds"`
	ChangedAfterCommit bool           `json:"changed_after_commit,omitempty"`
}

// Report is the submission payload: the scored, aggregated record of a
// completed session.
type Report struct {
	ExamStartedAt         *time.Time                   `json:"exam_started_at,omitempty"`
	ExamEndedAt           *time.Time                   `json:"exam_ended_at,omitempty"`
	TotalElapsedSeconds   float64                      `json:"total_elapsed_seconds"`
	CorrectRate           float64                      `json:"correct_rate"`
	AccuracyByDifficulty  map[model.Difficulty]float64 `json:"accuracy_by_difficulty"`
	StatusCounts          map[session.Status]int       `json:"status_counts"`
	StatusWeightedAverage float64                      `json:"status_weighted_average"`
	AnswerChangeCount     int                          `json:"answer_change_count"`
	Items                 []ItemResult                 `json:"items"`
}

// Build scores a session snapshot against the item definitions. It is
// pure and has no side effects: re-running it against a stored snapshot
// regenerates an identical report, both at submission time and for
// later viewing. Items with no recorded answer or time score
// incorrect/zero rather than failing.
func Build(defs []ItemDef, snap session.Snapshot) Report {
	rep := Report{
		ExamStartedAt:        snap.ExamStartedAt,
		ExamEndedAt:          snap.ExamEndedAt,
		TotalElapsedSeconds:  snap.TotalElapsedSeconds,
		AccuracyByDifficulty: make(map[model.Difficulty]float64),
		StatusCounts:         make(map[session.Status]int),
		Items:                make([]ItemResult, 0, len(defs)),
	}

	scorable, correct := 0, 0
	bucketScorable := make(map[model.Difficulty]int)
	bucketCorrect := make(map[model.Difficulty]int)
	statusTotal, statusWeight := 0, 0.0

	for _, def := range defs {
		item := snap.Items[def.ID] // Zero value when never touched.

		res := ItemResult{
			ItemID:             def.ID,
			SubmittedValues:    item.Selected,
			SubmittedText:      item.FreeText,
			Status:             item.Status,
			Skipped:            item.Skipped,
			ElapsedSeconds:     item.AccumulatedSeconds,
			ChangedAfterCommit: item.ModifiedAfterCommit,
		}

		if def.Kind.Scorable() {
			ok := scoreItem(def, item)
			res.IsCorrect = &ok
			scorable++
			bucketScorable[def.Difficulty]++
			if ok {
				correct++
				bucketCorrect[def.Difficulty]++
			}
		}

		if item.Status != session.StatusNone {
			rep.StatusCounts[item.Status]++
			statusTotal++
			statusWeight += session.StatusWeights[item.Status]
		}
		if item.ModifiedAfterCommit {
			// Counts once per item, however many times it was changed
			// after its first commit.
			rep.AnswerChangeCount++
		}

		rep.Items = append(rep.Items, res)
	}

	if scorable > 0 {
		rep.CorrectRate = float64(correct) / float64(scorable)
	}
	for bucket, n := range bucketScorable {
		rep.AccuracyByDifficulty[bucket] = float64(bucketCorrect[bucket]) / float64(n)
	}
	if statusTotal > 0 {
		rep.StatusWeightedAverage = statusWeight / float64(statusTotal)
	}

	return rep
}

// scoreItem applies the per-kind scoring policy. Selectable answers
// must match the canonical set exactly (size and membership, order
// ignored, no partial credit); free text must match after trimming.
func scoreItem(def ItemDef, item session.ItemSnapshot) bool {
	if def.Kind.Selectable() {
		if len(item.Selected) != len(def.CorrectAnswers) || len(def.CorrectAnswers) == 0 {
			return false
		}
		want := make(map[string]struct{}, len(def.CorrectAnswers))
		for _, v := range def.CorrectAnswers {
			want[v] = struct{}{}
		}
		for _, v := range item.Selected {
			if _, ok := want[v]; !ok {
				return false
			}
		}
		return true
	}
	if strings.TrimSpace(def.CorrectText) == "" {
		return false
	}
	return strings.TrimSpace(item.FreeText) == strings.TrimSpace(def.CorrectText)
}
