package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store persists session snapshots. Reads happen once, at start/resume;
// writes happen on every committing mutation (write-through).
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	// Load returns (nil, nil) when no snapshot exists.
	Load(ctx context.Context) (*Snapshot, error)
}

// Options configures a Controller.
type Options struct {
	// ItemOrder is the exam's item ID sequence; auto-advance after a
	// commit follows it.
	ItemOrder    []string
	Store        Store
	Log          zerolog.Logger
	TickInterval time.Duration
	// Now overrides the clock source. Tests use it.
	Now func() time.Time
}

// Controller composes the Stopwatch and the Answer Ledger behind a
// single interface and owns their lifecycle: start, resume after a
// reload, tick, and completion. All mutations serialize on one mutex
// and persist write-through before returning.
type Controller struct {
	mu     sync.Mutex
	ledger *Ledger
	watch  *Stopwatch
	store  Store
	log    zerolog.Logger

	itemOrder    []string
	tickInterval time.Duration

	ticker   *time.Ticker
	stopTick chan struct{}
	tickOnce sync.Once
}

// NewController creates a Controller. Call StartOrResume before any
// other operation.
func NewController(opts Options) *Controller {
	ledger := NewLedger()
	watch := NewStopwatch(ledger)
	if opts.Now != nil {
		ledger.now = opts.Now
		watch.now = opts.Now
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Controller{
		ledger:       ledger,
		watch:        watch,
		store:        opts.Store,
		log:          opts.Log.With().Str("component", "session_controller").Logger(),
		itemOrder:    opts.ItemOrder,
		tickInterval: tick,
		stopTick:     make(chan struct{}),
	}
}

// StartOrResume loads the persisted snapshot once and either resumes
// the prior session or starts a fresh one. Corrupt or missing persisted
// state degrades to a fresh session rather than a crash.
func (c *Controller) StartOrResume(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		snap, err := c.store.Load(ctx)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Msg("Snapshot load failed, starting fresh")
		case snap != nil && snap.ExamStartedAt != nil:
			restore(*snap, c.ledger, c.watch)
		}
	}

	if c.watch.StartedAt() != nil {
		c.watch.Resume()
	} else {
		first := ""
		if len(c.itemOrder) > 0 {
			first = c.itemOrder[0]
		}
		c.watch.Start(first)
	}

	c.startTicker()
	c.persist(ctx)
}

// TransitionTo moves the active item pointer (navigation click or
// scroll-into-view).
func (c *Controller) TransitionTo(ctx context.Context, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watch.TransitionTo(itemID)
	c.persist(ctx)
}

// SelectAnswer records a selectable answer set for an item.
func (c *Controller) SelectAnswer(ctx context.Context, itemID string, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.SelectAnswer(itemID, values)
	c.persist(ctx)
}

// SetText records a free-text answer for an item.
func (c *Controller) SetText(ctx context.Context, itemID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.SetText(itemID, text)
	c.persist(ctx)
}

// Commit marks an item done with a self-assessment status, then
// auto-advances to the next item in sequence. Auto-advance is
// suppressed when the item has no answer value yet.
func (c *Controller) Commit(ctx context.Context, itemID string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.watch.Commit(itemID, status)

	if c.ledger.HasAnswer(itemID) {
		if next := c.nextAfter(itemID); next != "" {
			c.watch.TransitionTo(next)
		}
	}
	c.persist(ctx)
}

// Skip tags an item as deliberately deferred without touching its clock.
func (c *Controller) Skip(ctx context.Context, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.MarkSkipped(itemID)
	c.persist(ctx)
}

// End completes the session: finalizes the active item, stops the tick,
// and stamps the end time. Idempotent.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watch.End()
	c.stopTicker()
	c.persist(ctx)
}

// Snapshot returns the current durable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return export(c.ledger, c.watch)
}

// Ended reports whether the session has been completed.
func (c *Controller) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watch.EndedAt() != nil
}

// Close releases the ticker without ending the session (server
// shutdown; the snapshot in the store carries the session across).
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTicker()
}

// ─── internal (callers hold c.mu) ───────────────────────────────────

func (c *Controller) nextAfter(itemID string) string {
	for i, id := range c.itemOrder {
		if id == itemID && i+1 < len(c.itemOrder) {
			return c.itemOrder[i+1]
		}
	}
	return ""
}

func (c *Controller) startTicker() {
	if c.ticker != nil {
		return
	}
	c.ticker = time.NewTicker(c.tickInterval)
	seconds := c.tickInterval.Seconds()
	go func() {
		for {
			select {
			case <-c.ticker.C:
				c.mu.Lock()
				c.watch.Tick(seconds)
				c.mu.Unlock()
			case <-c.stopTick:
				return
			}
		}
	}()
}

func (c *Controller) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.tickOnce.Do(func() { close(c.stopTick) })
	c.ticker = nil
}

func (c *Controller) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, export(c.ledger, c.watch)); err != nil {
		// The live session stays authoritative in memory; the next
		// mutation retries the write-through.
		c.log.Error().Err(err).Msg("Snapshot write-through failed")
	}
}
