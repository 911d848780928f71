package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memStore struct {
	snap    *Snapshot
	saves   int
	loadErr error
}

func (m *memStore) Save(_ context.Context, snap Snapshot) error {
	m.snap = &snap
	m.saves++
	return nil
}

func (m *memStore) Load(_ context.Context) (*Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.snap, nil
}

func testController(store Store, clock *fakeClock, items ...string) *Controller {
	if len(items) == 0 {
		items = []string{"q1", "q2", "q3"}
	}
	return NewController(Options{
		ItemOrder:    items,
		Store:        store,
		Log:          zerolog.Nop(),
		TickInterval: time.Hour, // Ticks are driven manually in tests.
		Now:          clock.now,
	})
}

func TestController_ResumeAfterReload(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()
	t0 := clock.now()

	first := testController(store, clock)
	first.StartOrResume(ctx)
	clock.advance(5 * time.Second)
	first.TransitionTo(ctx, "q2") // Finalizes q1 at 5s.
	first.Close()                 // Process dies; no End.

	// 100 seconds of wall clock pass while nothing runs.
	clock.t = t0.Add(100 * time.Second)

	second := testController(store, clock)
	second.StartOrResume(ctx)
	defer second.Close()

	snap := second.Snapshot()
	if snap.ExamStartedAt == nil || !snap.ExamStartedAt.Equal(t0) {
		t.Fatalf("exam start %v, want %v preserved across reload", snap.ExamStartedAt, t0)
	}
	if snap.TotalElapsedSeconds != 100 {
		t.Errorf("total elapsed %v, want 100 (wall-clock gap counts)", snap.TotalElapsedSeconds)
	}
	if got := snap.Items["q1"].AccumulatedSeconds; got != 5 {
		t.Errorf("q1 accumulated %v, want 5 untouched until revisited", got)
	}
	if snap.ActiveItemID != "q2" {
		t.Errorf("active item %q, want q2 re-activated", snap.ActiveItemID)
	}
}

func TestController_LoadFailureDegradesToFreshSession(t *testing.T) {
	ctx := context.Background()
	store := &memStore{loadErr: errors.New("corrupt persisted data")}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)
	defer c.Close()

	snap := c.Snapshot()
	if snap.ExamStartedAt == nil {
		t.Fatal("fresh session did not start")
	}
	if snap.TotalElapsedSeconds != 0 {
		t.Errorf("fresh session total %v, want 0", snap.TotalElapsedSeconds)
	}
}

func TestController_WritesThroughOnEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)
	defer c.Close()

	before := store.saves
	c.SelectAnswer(ctx, "q1", []string{"a"})
	c.TransitionTo(ctx, "q2")
	c.Skip(ctx, "q3")
	c.Commit(ctx, "q2", StatusUnsure)

	if store.saves != before+4 {
		t.Fatalf("got %d snapshot writes for 4 mutations, want 4", store.saves-before)
	}
	if store.snap == nil || !store.snap.Items["q3"].Skipped {
		t.Error("persisted snapshot missing the skip tag")
	}
}

func TestController_CommitAutoAdvances(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)
	defer c.Close()

	c.SelectAnswer(ctx, "q1", []string{"a"})
	c.Commit(ctx, "q1", StatusConfident)

	if got := c.Snapshot().ActiveItemID; got != "q2" {
		t.Errorf("active item %q after commit, want q2", got)
	}
}

func TestController_CommitWithoutAnswerDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)
	defer c.Close()

	c.Commit(ctx, "q1", StatusGuessed)

	if got := c.Snapshot().ActiveItemID; got != "" {
		t.Errorf("active item %q after unanswered commit, want none", got)
	}
}

func TestController_EndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)

	clock.advance(30 * time.Second)
	c.End(ctx)
	ended := *c.Snapshot().ExamEndedAt

	clock.advance(time.Minute)
	c.End(ctx)

	if !c.Snapshot().ExamEndedAt.Equal(ended) {
		t.Error("second End moved the exam end time")
	}
	if !c.Ended() {
		t.Error("Ended() false after End")
	}
}

func TestSnapshot_RoundTripsThroughJSON(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	clock := newFakeClock()

	c := testController(store, clock)
	c.StartOrResume(ctx)
	c.SelectAnswer(ctx, "q1", []string{"4", "2"})
	clock.advance(9 * time.Second)
	c.Commit(ctx, "q1", StatusConfident)
	c.SetText(ctx, "q2", "partial working")
	c.Skip(ctx, "q3")
	c.End(ctx)

	snap := c.Snapshot()

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(snap, decoded) {
		t.Errorf("snapshot did not round-trip:\n got %+v\nwant %+v", decoded, snap)
	}
	if !reflect.DeepEqual(decoded.Items["q1"].Selected, []string{"2", "4"}) {
		t.Errorf("answer set serialized as %v, want sorted [2 4]", decoded.Items["q1"].Selected)
	}
}
