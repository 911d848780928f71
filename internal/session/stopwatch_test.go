package session

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func testStopwatch() (*Stopwatch, *Ledger, *fakeClock) {
	clock := newFakeClock()
	ledger := NewLedger()
	ledger.now = clock.now
	watch := NewStopwatch(ledger)
	watch.now = clock.now
	return watch, ledger, clock
}

func TestStopwatch_AttributesTimeToActiveItem(t *testing.T) {
	watch, _, clock := testStopwatch()

	watch.Start("q1")
	clock.advance(10 * time.Second)
	watch.TransitionTo("q2")
	clock.advance(5 * time.Second)
	watch.TransitionTo("q3")

	if got := watch.Clock("q1").AccumulatedSeconds; got != 10 {
		t.Errorf("q1 accumulated %v, want 10", got)
	}
	if got := watch.Clock("q2").AccumulatedSeconds; got != 5 {
		t.Errorf("q2 accumulated %v, want 5", got)
	}
	if watch.ActiveItemID() != "q3" {
		t.Errorf("active item %q, want q3", watch.ActiveItemID())
	}
}

func TestStopwatch_TransitionToActiveItemIsNoop(t *testing.T) {
	watch, _, clock := testStopwatch()

	watch.Start("q1")
	clock.advance(3 * time.Second)
	watch.TransitionTo("q1")
	clock.advance(4 * time.Second)
	watch.TransitionTo("q2")

	// The self-transition must not finalize and restart the interval.
	if got := watch.Clock("q1").AccumulatedSeconds; got != 7 {
		t.Errorf("q1 accumulated %v, want 7", got)
	}
}

func TestStopwatch_StartIsIdempotent(t *testing.T) {
	watch, _, clock := testStopwatch()

	watch.Start("q1")
	started := *watch.StartedAt()
	clock.advance(time.Minute)
	watch.Start("q1")

	if !watch.StartedAt().Equal(started) {
		t.Error("second Start overwrote the exam start time")
	}
}

func TestStopwatch_CommittedItemAccruesNoTimeOnRevisit(t *testing.T) {
	watch, ledger, clock := testStopwatch()

	watch.Start("q1")
	ledger.SelectAnswer("q1", []string{"b"})
	clock.advance(20 * time.Second)
	watch.Commit("q1", StatusConfident)

	committed := watch.Clock("q1").AccumulatedSeconds
	if committed != 20 {
		t.Fatalf("q1 committed with %v seconds, want 20", committed)
	}

	// Revisit for reading only: no answer change, no status change.
	watch.TransitionTo("q1")
	clock.advance(30 * time.Second)
	watch.TransitionTo("q2")

	if got := watch.Clock("q1").AccumulatedSeconds; got != committed {
		t.Errorf("revisit for reading accrued time: %v, want %v", got, committed)
	}
	if watch.Clock("q1").ModifiedAfterCommit {
		t.Error("unchanged revisit flagged as modified after commit")
	}
}

func TestStopwatch_RecommitOnAnswerChangeAfterCommit(t *testing.T) {
	watch, ledger, clock := testStopwatch()

	watch.Start("q1")
	ledger.SelectAnswer("q1", []string{"1"})
	clock.advance(20 * time.Second)
	watch.Commit("q1", StatusConfident)

	// Revisit, change the answer, leave.
	watch.TransitionTo("q1")
	ledger.SelectAnswer("q1", []string{"2"})
	clock.advance(8 * time.Second)
	watch.TransitionTo("q2")

	rec := watch.Clock("q1")
	if !rec.ModifiedAfterCommit {
		t.Error("answer change after commit not flagged")
	}
	if rec.AccumulatedSeconds != 28 {
		t.Errorf("q1 accumulated %v, want 28 (committed time reflects the extra interval)", rec.AccumulatedSeconds)
	}
	if ledger.HasChangedSinceCommit("q1") {
		t.Error("re-commit did not refresh the committed answer snapshot")
	}
}

func TestStopwatch_RecommitWithUnchangedDataIsIdempotent(t *testing.T) {
	watch, ledger, clock := testStopwatch()

	watch.Start("q1")
	ledger.SelectAnswer("q1", []string{"a"})
	clock.advance(10 * time.Second)
	watch.Commit("q1", StatusUnsure)

	clock.advance(5 * time.Second)
	watch.Commit("q1", StatusUnsure)

	rec := watch.Clock("q1")
	if rec.AccumulatedSeconds != 10 {
		t.Errorf("idempotent re-commit accrued time: %v, want 10", rec.AccumulatedSeconds)
	}
	if rec.ModifiedAfterCommit {
		t.Error("idempotent re-commit flagged as modified")
	}
}

func TestStopwatch_StatusChangeTriggersRecommit(t *testing.T) {
	watch, ledger, clock := testStopwatch()

	watch.Start("q1")
	ledger.SelectAnswer("q1", []string{"a"})
	clock.advance(10 * time.Second)
	watch.Commit("q1", StatusGuessed)

	clock.advance(3 * time.Second)
	watch.Commit("q1", StatusConfident)

	rec := watch.Clock("q1")
	if !rec.ModifiedAfterCommit {
		t.Error("status change after commit not flagged")
	}
	if rec.CommittedStatus != StatusConfident {
		t.Errorf("committed status %q, want %q", rec.CommittedStatus, StatusConfident)
	}
}

func TestStopwatch_EndFinalizesActiveAndIsIdempotent(t *testing.T) {
	watch, _, clock := testStopwatch()

	watch.Start("q1")
	clock.advance(12 * time.Second)
	watch.End()

	if got := watch.Clock("q1").AccumulatedSeconds; got != 12 {
		t.Errorf("q1 accumulated %v, want 12", got)
	}
	ended := *watch.EndedAt()

	clock.advance(time.Minute)
	watch.End()
	if !watch.EndedAt().Equal(ended) {
		t.Error("second End overwrote the exam end time")
	}
}

func TestStopwatch_ItemTimeNeverExceedsTotal(t *testing.T) {
	watch, ledger, clock := testStopwatch()

	watch.Start("q1")
	ledger.SelectAnswer("q1", []string{"a"})
	for i := 0; i < 30; i++ {
		clock.advance(time.Second)
		watch.Tick(1)
	}
	watch.Commit("q1", StatusConfident)

	// After the commit no item clock runs: the student scrolls the
	// overview for 10 ticks. That time belongs to no item.
	for i := 0; i < 10; i++ {
		clock.advance(time.Second)
		watch.Tick(1)
	}
	watch.End()

	if got := watch.Clock("q1").AccumulatedSeconds; got != 30 {
		t.Errorf("q1 accumulated %v, want 30", got)
	}
	if total := watch.TotalElapsedSeconds(); total != 40 {
		t.Errorf("total elapsed %v, want 40", total)
	}
}
