package session

import (
	"time"
)

// Status is a self-assessment tag recorded when the student marks an
// item done.
type Status string

const (
	StatusConfident Status = "CONFIDENT"
	StatusUnsure    Status = "UNSURE"
	StatusGuessed   Status = "GUESSED"
	// StatusNone means the item has not been committed.
	StatusNone Status = ""
)

// StatusWeights maps self-assessment tags to the weights used for the
// report's weighted average.
var StatusWeights = map[Status]float64{
	StatusConfident: 1.0,
	StatusUnsure:    0.5,
	StatusGuessed:   0.0,
}

// AnswerSource is the stopwatch's view of the answer ledger. The
// stopwatch never reaches into ledger state directly; it asks.
type AnswerSource interface {
	HasAnswer(itemID string) bool
	HasChangedSinceCommit(itemID string) bool
	SnapshotCommit(itemID string)
}

// ItemClock is the per-item timing and commit bookkeeping.
type ItemClock struct {
	AccumulatedSeconds  float64
	Status              Status
	Committed           bool
	CommittedStatus     Status
	ModifiedAfterCommit bool
}

// Stopwatch owns per-item accumulated time, the single running item
// clock, the global exam clock, and commit/re-commit semantics. At most
// one item clock runs at any instant; time between items (scrolling,
// reading the overview) is attributed to no item, so the per-item sum
// never exceeds the total.
//
// Not safe for concurrent use; the owning Controller serializes access.
type Stopwatch struct {
	now    func() time.Time
	source AnswerSource

	items        map[string]*ItemClock
	activeItemID string
	activeSince  time.Time

	startedAt    *time.Time
	endedAt      *time.Time
	totalElapsed float64
	running      bool
}

// NewStopwatch creates a Stopwatch that consults source for re-commit
// decisions.
func NewStopwatch(source AnswerSource) *Stopwatch {
	return &Stopwatch{
		now:    time.Now,
		source: source,
		items:  make(map[string]*ItemClock),
	}
}

func (s *Stopwatch) clock(itemID string) *ItemClock {
	c, ok := s.items[itemID]
	if !ok {
		c = &ItemClock{}
		s.items[itemID] = c
	}
	return c
}

// Start begins a fresh session: sets the exam start time and activates
// the first item. No-op if the session is already running.
func (s *Stopwatch) Start(firstItemID string) {
	if s.running || s.startedAt != nil {
		return
	}
	now := s.now()
	s.startedAt = &now
	s.running = true
	if firstItemID != "" {
		s.activeItemID = firstItemID
		s.activeSince = now
	}
}

// Resume continues a session restored from a snapshot. The wall-clock
// gap since the persisted start counts toward total exam time even
// though the process was not running; the previously active item's
// clock restarts without resetting its accumulated time. No-op if
// already running; the caller must guarantee a prior start exists.
func (s *Stopwatch) Resume() {
	if s.running || s.startedAt == nil {
		return
	}
	now := s.now()
	s.totalElapsed = now.Sub(*s.startedAt).Seconds()
	s.running = true
	if s.activeItemID != "" {
		s.activeSince = now
	}
}

// Tick advances the global exam clock. The Controller calls it once per
// tick interval.
func (s *Stopwatch) Tick(seconds float64) {
	if !s.running {
		return
	}
	s.totalElapsed += seconds
}

// TransitionTo moves the active pointer to another item, finalizing the
// elapsed interval of the one being left. Visiting the already-active
// item is a no-op.
func (s *Stopwatch) TransitionTo(itemID string) {
	if itemID == s.activeItemID || !s.running {
		return
	}
	s.finalizeActive()
	s.activeItemID = itemID
	s.activeSince = s.now()
}

// Commit records the item's self-assessment status and snapshots its
// answer as committed, finalizing its elapsed interval. Committing an
// item that is not active visits it first. A second commit with
// unchanged data is an idempotent re-commit: no extra time, no flag.
// The active pointer clears afterward; auto-advance is caller-driven.
func (s *Stopwatch) Commit(itemID string, status Status) {
	if !s.running {
		return
	}
	if s.activeItemID != itemID {
		s.TransitionTo(itemID)
	}

	rec := s.clock(itemID)
	elapsed := s.now().Sub(s.activeSince).Seconds()
	changed := s.source.HasChangedSinceCommit(itemID) || rec.Status != status

	if !rec.Committed {
		rec.AccumulatedSeconds += elapsed
	} else if changed {
		// Answer or status changed after the item was marked done:
		// overwrite the committed snapshot and remember the fact.
		rec.AccumulatedSeconds += elapsed
		rec.ModifiedAfterCommit = true
	}

	rec.Status = status
	rec.CommittedStatus = status
	rec.Committed = true
	s.source.SnapshotCommit(itemID)
	s.activeItemID = ""
}

// End finalizes the active item (without switching to another), stops
// the clock, and stamps the exam end. Idempotent: a second call does
// not overwrite an already-set end time.
func (s *Stopwatch) End() {
	if s.endedAt != nil {
		return
	}
	s.finalizeActive()
	now := s.now()
	s.endedAt = &now
	s.running = false
}

// finalizeActive closes the running interval of the active item. A
// committed item accrues the revisit interval only when its answer or
// status actually changed (revisiting for reading is free) and a
// detected change triggers a re-commit.
func (s *Stopwatch) finalizeActive() {
	if s.activeItemID == "" {
		return
	}
	rec := s.clock(s.activeItemID)
	elapsed := s.now().Sub(s.activeSince).Seconds()

	if !rec.Committed {
		rec.AccumulatedSeconds += elapsed
	} else if s.source.HasChangedSinceCommit(s.activeItemID) || rec.Status != rec.CommittedStatus {
		rec.AccumulatedSeconds += elapsed
		rec.CommittedStatus = rec.Status
		s.source.SnapshotCommit(s.activeItemID)
		rec.ModifiedAfterCommit = true
	}

	s.activeItemID = ""
}

// ActiveItemID returns the item whose clock is running, or "".
func (s *Stopwatch) ActiveItemID() string {
	return s.activeItemID
}

// Running reports whether the session clock is ticking.
func (s *Stopwatch) Running() bool {
	return s.running
}

// StartedAt returns the exam start time, if started.
func (s *Stopwatch) StartedAt() *time.Time {
	return s.startedAt
}

// EndedAt returns the exam end time, if ended.
func (s *Stopwatch) EndedAt() *time.Time {
	return s.endedAt
}

// TotalElapsedSeconds returns the global exam clock value.
func (s *Stopwatch) TotalElapsedSeconds() float64 {
	return s.totalElapsed
}

// Clock returns a copy of the item's timing record.
func (s *Stopwatch) Clock(itemID string) ItemClock {
	if rec, ok := s.items[itemID]; ok {
		return *rec
	}
	return ItemClock{}
}
