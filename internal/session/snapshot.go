package session

import (
	"time"
)

// Snapshot is the durable form of a session: plain nested key→value
// structures, with answer sets serialized as sorted arrays, so it
// round-trips exactly through JSON and a reload reconstructs the
// session bit-for-bit.
type Snapshot struct {
	ExamStartedAt       *time.Time              `json:"exam_started_at,omitempty"`
	ExamEndedAt         *time.Time              `json:"exam_ended_at,omitempty"`
	ActiveItemID        string                  `json:"active_item_id,omitempty"`
	TotalElapsedSeconds float64                 `json:"total_elapsed_seconds"`
	Items               map[string]ItemSnapshot `json:"items"`
}

// ItemSnapshot is the durable per-item state, spanning both the ledger
// (answers, history, skip tag) and the stopwatch (time, commit flags).
type ItemSnapshot struct {
	AnswerKind          AnswerKind    `json:"answer_kind,omitempty"`
	Selected            []string      `json:"selected,omitempty"`
	FreeText            string        `json:"free_text,omitempty"`
	CommittedSelected   []string      `json:"committed_selected,omitempty"`
	CommittedText       string        `json:"committed_text,omitempty"`
	Skipped             bool          `json:"skipped,omitempty"`
	History             []AnswerEvent `json:"history,omitempty"`
	AccumulatedSeconds  float64       `json:"accumulated_seconds"`
	Status              Status        `json:"status,omitempty"`
	Committed           bool          `json:"committed,omitempty"`
	CommittedStatus     Status        `json:"committed_status,omitempty"`
	ModifiedAfterCommit bool          `json:"modified_after_commit,omitempty"`
}

// export builds a Snapshot from the ledger and stopwatch.
func export(l *Ledger, s *Stopwatch) Snapshot {
	snap := Snapshot{
		ExamStartedAt:       s.startedAt,
		ExamEndedAt:         s.endedAt,
		ActiveItemID:        s.activeItemID,
		TotalElapsedSeconds: s.totalElapsed,
		Items:               make(map[string]ItemSnapshot),
	}

	for id, rec := range l.items {
		item := snap.Items[id]
		item.AnswerKind = rec.kind
		item.Selected = sortedValues(rec.selected)
		item.FreeText = rec.text
		item.CommittedSelected = sortedValues(rec.committedSelected)
		item.CommittedText = rec.committedText
		item.Skipped = rec.skipped
		item.History = rec.history
		snap.Items[id] = item
	}
	for id, clock := range s.items {
		item := snap.Items[id]
		item.AccumulatedSeconds = clock.AccumulatedSeconds
		item.Status = clock.Status
		item.Committed = clock.Committed
		item.CommittedStatus = clock.CommittedStatus
		item.ModifiedAfterCommit = clock.ModifiedAfterCommit
		snap.Items[id] = item
	}

	return snap
}

// restore populates a fresh ledger and stopwatch from a Snapshot.
func restore(snap Snapshot, l *Ledger, s *Stopwatch) {
	s.startedAt = snap.ExamStartedAt
	s.endedAt = snap.ExamEndedAt
	s.activeItemID = snap.ActiveItemID
	s.totalElapsed = snap.TotalElapsedSeconds

	for id, item := range snap.Items {
		rec := l.record(id)
		rec.kind = item.AnswerKind
		rec.selected = toSet(item.Selected)
		rec.text = item.FreeText
		rec.committedSelected = toSet(item.CommittedSelected)
		rec.committedText = item.CommittedText
		rec.skipped = item.Skipped
		rec.history = item.History

		clock := s.clock(id)
		clock.AccumulatedSeconds = item.AccumulatedSeconds
		clock.Status = item.Status
		clock.Committed = item.Committed
		clock.CommittedStatus = item.CommittedStatus
		clock.ModifiedAfterCommit = item.ModifiedAfterCommit
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
