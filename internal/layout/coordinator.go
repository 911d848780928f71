package layout

import (
	"sync"
	"time"
)

// State is the coordinator's recompute gate.
type State string

const (
	// StateProvisional means the current layout was computed from
	// incomplete measurements; new heights re-arm the debounce timer.
	StateProvisional State = "PROVISIONAL"
	// StateConverged means a debounced recompute has run and further
	// stray measurements are ignored until something invalidates.
	StateConverged State = "CONVERGED"
	// StateLocked suppresses recomputation while a drag-style control
	// is active. Heights are still recorded.
	StateLocked State = "LOCKED"
)

// Document is the published layout: primary items and derived chunks
// paginate as independent streams under independent budgets, so each
// carries its own page list and placement map.
type Document struct {
	Primary Result `json:"primary"`
	Chunks  Result `json:"chunks"`
	// Final reports whether this layout came from a converged
	// (debounced or forced) recompute rather than the synchronous
	// provisional pass on selection change.
	Final bool `json:"final"`
}

// CoordinatorConfig carries the budgets and debounce window for one
// coordinator instance.
type CoordinatorConfig struct {
	PrimaryLimit    LimitFunc
	PrimaryFallback float64
	ChunkLimit      LimitFunc
	ChunkFallback   float64
	DebounceWindow  time.Duration
}

// Coordinator owns the current item selection and the height cache, and
// decides when the pagination engine runs: once synchronously on
// selection change, then at most once per measurement burst via the
// debounce timer. Measurements arrive in bursts as content reflows;
// recomputing on every single one causes visible thrash and can loop (a
// recompute changes what is visible, which changes what gets
// re-measured). The state gate turns the unbounded measurement stream
// into one authoritative recompute per burst.
//
// All operations serialize on an internal mutex, including the timer
// callback, so tick-vs-event ordering matches a single event queue.
type Coordinator struct {
	mu  sync.Mutex
	cfg CoordinatorConfig

	selection []Item
	primary   []Item
	chunks    []Item
	heights   *HeightCache

	state State
	// prevState is restored when an interaction lock releases; locking
	// must not erase whether the layout had already converged.
	prevState State
	editing   map[string]struct{}

	timer   *time.Timer
	current Document

	// publish receives every recomputed layout. It runs under the
	// coordinator's lock and must not call back into the Coordinator.
	publish func(Document)
}

// NewCoordinator creates a Coordinator with an empty selection.
func NewCoordinator(cfg CoordinatorConfig, publish func(Document)) *Coordinator {
	if publish == nil {
		publish = func(Document) {}
	}
	return &Coordinator{
		cfg:       cfg,
		heights:   NewHeightCache(),
		state:     StateProvisional,
		prevState: StateProvisional,
		editing:   make(map[string]struct{}),
		publish:   publish,
	}
}

// SetSelection replaces the ordered item selection. A reorder of the
// same IDs counts as a change: grouping is order-dependent. On change
// the height cache is pruned to the new selection and one synchronous
// provisional recompute runs.
func (c *Coordinator) SetSelection(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sameIDSequence(c.selection, items) {
		return
	}

	c.selection = items
	c.primary = c.primary[:0]
	c.chunks = c.chunks[:0]
	keep := make(map[string]struct{}, len(items))
	for _, it := range items {
		keep[it.ID] = struct{}{}
		if it.IsChunk() {
			c.chunks = append(c.chunks, it)
		} else {
			c.primary = append(c.primary, it)
		}
	}
	c.heights.Prune(keep)

	c.stopTimer()
	c.toProvisional()
	c.recompute(false)
}

// ReportHeight records a measurement and re-arms the debounce timer.
// The height is always retained, even while converged or locked, so a
// later forced recompute uses fresh data. Whether the timer's firing
// actually recomputes is decided at fire time.
func (c *Coordinator) ReportHeight(itemID string, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.heights.Set(itemID, height)
	c.armTimer()
}

// Invalidate marks the layout provisional again without clearing the
// height cache. Used when a layout-affecting control (minimum box
// height, font size) changes.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toProvisional()
	c.armTimer()
}

// ForceRecompute cancels any pending debounce and recomputes
// immediately, regardless of state. Used when leaving an editing
// context so the displayed layout reflects the final edited content
// even if the debounce window has not elapsed.
func (c *Coordinator) ForceRecompute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimer()
	c.recompute(true)
	c.toConverged()
}

// SetInteractionLocked toggles the drag-control gate. While locked,
// heights are recorded but recompute is suppressed. Unlocking restores
// the state the lock interrupted.
func (c *Coordinator) SetInteractionLocked(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if locked {
		if c.state != StateLocked {
			c.prevState = c.state
			c.state = StateLocked
		}
		return
	}
	if c.state == StateLocked {
		c.state = c.prevState
	}
}

// SetEditing marks an item's inline editor as open or closed. Any open
// editor suppresses debounced recompute; the caller is expected to
// ForceRecompute when the last editor closes.
func (c *Coordinator) SetEditing(itemID string, editing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if editing {
		c.editing[itemID] = struct{}{}
	} else {
		delete(c.editing, itemID)
	}
}

// State returns the current recompute gate state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Document returns the most recently computed layout.
func (c *Coordinator) Document() Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close cancels any pending debounce timer.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
}

// ─── internal (callers hold c.mu) ───────────────────────────────────

func (c *Coordinator) toProvisional() {
	if c.state == StateLocked {
		c.prevState = StateProvisional
		return
	}
	c.state = StateProvisional
}

func (c *Coordinator) toConverged() {
	if c.state == StateLocked {
		c.prevState = StateConverged
		return
	}
	c.state = StateConverged
}

func (c *Coordinator) armTimer() {
	if c.cfg.DebounceWindow <= 0 {
		c.onDebounce()
		return
	}
	c.stopTimer()
	c.timer = time.AfterFunc(c.cfg.DebounceWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.timer = nil
		c.onDebounce()
	})
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// onDebounce evaluates the recompute guard when the debounce window
// elapses. Exactly one of three things blocks convergence: an already
// converged layout, an interaction lock, or an open inline editor.
func (c *Coordinator) onDebounce() {
	if c.state != StateProvisional || len(c.editing) > 0 {
		return
	}
	c.recompute(true)
	c.state = StateConverged
}

func (c *Coordinator) recompute(final bool) {
	c.current = Document{
		Primary: Paginate(c.primary, c.heights, c.cfg.PrimaryFallback, c.cfg.PrimaryLimit),
		Chunks:  Paginate(c.chunks, c.heights, c.cfg.ChunkFallback, c.cfg.ChunkLimit),
		Final:   final,
	}
	c.publish(c.current)
}

func sameIDSequence(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
