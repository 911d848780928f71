package layout

import (
	"sync"
	"testing"
	"time"
)

type layoutCollector struct {
	mu   sync.Mutex
	docs []Document
}

func (lc *layoutCollector) publish(d Document) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.docs = append(lc.docs, d)
}

func (lc *layoutCollector) count() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.docs)
}

func (lc *layoutCollector) last() Document {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.docs) == 0 {
		return Document{}
	}
	return lc.docs[len(lc.docs)-1]
}

func testCoordinator(debounce time.Duration) (*Coordinator, *layoutCollector) {
	lc := &layoutCollector{}
	c := NewCoordinator(CoordinatorConfig{
		PrimaryLimit:    constLimit(250),
		PrimaryFallback: 100,
		ChunkLimit:      constLimit(250),
		ChunkFallback:   40,
		DebounceWindow:  debounce,
	}, lc.publish)
	return c, lc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCoordinator_SelectionChangeRecomputesSynchronously(t *testing.T) {
	c, lc := testCoordinator(20 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(2))

	if lc.count() != 1 {
		t.Fatalf("got %d recomputes after selection change, want 1", lc.count())
	}
	if doc := lc.last(); doc.Final {
		t.Error("selection-change layout should be provisional")
	}
	if c.State() != StateProvisional {
		t.Errorf("state %s, want %s", c.State(), StateProvisional)
	}
}

func TestCoordinator_DebounceCoalescesMeasurementBurst(t *testing.T) {
	c, lc := testCoordinator(20 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(2))

	// A burst of measurements within the window must produce exactly
	// one recompute, built from the last reported height per item.
	c.ReportHeight("p1", 50)
	c.ReportHeight("p1", 100)
	c.ReportHeight("p2", 130)
	c.ReportHeight("p1", 200)

	waitFor(t, "converged layout", func() bool { return lc.count() >= 2 })

	if lc.count() != 2 {
		t.Fatalf("got %d recomputes, want 2 (provisional + converged)", lc.count())
	}
	doc := lc.last()
	if !doc.Final {
		t.Error("debounced layout should be final")
	}
	// 200 + 130 > 250: the final heights split the items into separate
	// columns; the earlier 50/100 measurements would not have.
	if doc.Primary.Placement["p2"] != (Placement{Page: 1, Column: 2}) {
		t.Errorf("p2 at %+v, want (1,2) from last reported heights", doc.Primary.Placement["p2"])
	}
	if c.State() != StateConverged {
		t.Errorf("state %s, want %s", c.State(), StateConverged)
	}
}

func TestCoordinator_ConvergedIgnoresStrayMeasurements(t *testing.T) {
	c, lc := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(2))
	c.ReportHeight("p1", 50)
	waitFor(t, "convergence", func() bool { return c.State() == StateConverged })
	n := lc.count()

	c.ReportHeight("p1", 999)
	time.Sleep(50 * time.Millisecond)

	if lc.count() != n {
		t.Fatalf("stray measurement triggered recompute (%d -> %d)", n, lc.count())
	}

	// The stray height was still recorded: invalidation picks it up.
	c.Invalidate()
	waitFor(t, "recompute after invalidate", func() bool { return lc.count() > n })
	doc := lc.last()
	if doc.Primary.Placement["p2"] != (Placement{Page: 1, Column: 2}) {
		t.Errorf("p2 at %+v, want (1,2): 999 forces p1 alone", doc.Primary.Placement["p2"])
	}
}

func TestCoordinator_InteractionLockSuppressesRecompute(t *testing.T) {
	c, lc := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(2))
	n := lc.count()

	c.SetInteractionLocked(true)
	if c.State() != StateLocked {
		t.Fatalf("state %s, want %s", c.State(), StateLocked)
	}

	c.ReportHeight("p1", 240)
	time.Sleep(50 * time.Millisecond)
	if lc.count() != n {
		t.Fatal("recompute ran while interaction locked")
	}

	c.SetInteractionLocked(false)
	if c.State() != StateProvisional {
		t.Fatalf("state %s after unlock, want %s", c.State(), StateProvisional)
	}

	c.ReportHeight("p2", 240)
	waitFor(t, "recompute after unlock", func() bool { return lc.count() > n })
}

func TestCoordinator_UnlockRestoresConvergedState(t *testing.T) {
	c, _ := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(1))
	c.ReportHeight("p1", 50)
	waitFor(t, "convergence", func() bool { return c.State() == StateConverged })

	c.SetInteractionLocked(true)
	c.SetInteractionLocked(false)

	if c.State() != StateConverged {
		t.Fatalf("state %s, want %s preserved across lock", c.State(), StateConverged)
	}
}

func TestCoordinator_EditingItemBlocksConvergence(t *testing.T) {
	c, lc := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	c.SetSelection(problems(2))
	n := lc.count()

	c.SetEditing("p1", true)
	c.ReportHeight("p1", 120)
	time.Sleep(50 * time.Millisecond)
	if lc.count() != n {
		t.Fatal("recompute ran while an inline editor was open")
	}

	c.SetEditing("p1", false)
	c.ReportHeight("p1", 120)
	waitFor(t, "recompute after editor closed", func() bool { return lc.count() > n })
}

func TestCoordinator_ForceRecomputeBypassesGuards(t *testing.T) {
	c, lc := testCoordinator(time.Hour) // Debounce will never fire on its own.
	defer c.Close()

	c.SetSelection(problems(2))
	c.SetEditing("p1", true)
	c.ReportHeight("p1", 200)
	c.ReportHeight("p2", 130)
	n := lc.count()

	c.ForceRecompute()

	if lc.count() != n+1 {
		t.Fatalf("got %d recomputes, want %d", lc.count(), n+1)
	}
	doc := lc.last()
	if !doc.Final {
		t.Error("forced layout should be final")
	}
	if doc.Primary.Placement["p2"] != (Placement{Page: 1, Column: 2}) {
		t.Errorf("p2 at %+v, want (1,2) from recorded heights", doc.Primary.Placement["p2"])
	}
	if c.State() != StateConverged {
		t.Errorf("state %s, want %s", c.State(), StateConverged)
	}
}

func TestCoordinator_SelectionChangePrunesHeights(t *testing.T) {
	c, lc := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	two := problems(2)
	c.SetSelection(two)
	c.ReportHeight("p1", 200)
	c.ReportHeight("p2", 200)
	waitFor(t, "convergence", func() bool { return c.State() == StateConverged })
	if lc.last().Primary.Placement["p2"] != (Placement{Page: 1, Column: 2}) {
		t.Fatal("measured heights should split the two items")
	}

	// Leaving and re-entering the selection drops the measurements:
	// the provisional layout falls back to the estimate (100 each),
	// which packs both items into one column again.
	c.SetSelection(problems(1))
	c.SetSelection(two)

	doc := c.Document()
	if doc.Primary.Placement["p2"] != (Placement{Page: 1, Column: 1}) {
		t.Errorf("p2 at %+v, want (1,1) after cache prune", doc.Primary.Placement["p2"])
	}
}

func TestCoordinator_ReorderCountsAsNewSelection(t *testing.T) {
	c, lc := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	a := Item{ID: "a", Kind: KindProblem}
	b := Item{ID: "b", Kind: KindProblem}

	c.SetSelection([]Item{a, b})
	n := lc.count()

	// Same IDs, same order: no-op.
	c.SetSelection([]Item{a, b})
	if lc.count() != n {
		t.Fatal("identical selection triggered a recompute")
	}

	// Same IDs, different order: grouping is order-dependent, so a
	// reorder is a full reset.
	c.SetSelection([]Item{b, a})
	if lc.count() != n+1 {
		t.Fatal("reordered selection did not trigger a recompute")
	}
}

func TestCoordinator_ChunksPaginateIndependently(t *testing.T) {
	c, _ := testCoordinator(10 * time.Millisecond)
	defer c.Close()

	items := []Item{
		{ID: "p1", Kind: KindProblem},
		{ID: "p1/chunk-0", Kind: KindChunk, ParentID: "p1"},
		{ID: "p1/chunk-1", Kind: KindChunk, ParentID: "p1"},
	}
	c.SetSelection(items)

	doc := c.Document()
	if _, ok := doc.Primary.Placement["p1"]; !ok {
		t.Error("problem missing from primary placement")
	}
	if _, ok := doc.Primary.Placement["p1/chunk-0"]; ok {
		t.Error("chunk leaked into primary placement")
	}
	// Chunks start from page 1 of their own stream with the chunk
	// fallback height (40 each packs both into one column).
	if doc.Chunks.Placement["p1/chunk-1"] != (Placement{Page: 1, Column: 1}) {
		t.Errorf("chunk-1 at %+v, want (1,1)", doc.Chunks.Placement["p1/chunk-1"])
	}
}
