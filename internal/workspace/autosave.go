// Package workspace persists editor state with coalesced writes: rapid
// updates collapse into one save after a quiet window, and teardown forces a
// final flush.
package workspace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/models"
)

// DefaultWindow is the debounce quiet period.
const DefaultWindow = 2 * time.Second

// Saver is the destination for workspace state writes.
type Saver interface {
	Save(ctx context.Context, ws models.WorkspaceState) error
}

// Autosaver schedules debounced saves as an explicit cancellable delayed
// task. Schedule replaces any pending save; Flush writes the pending state
// immediately; Close flushes best-effort on teardown.
type Autosaver struct {
	log    *zap.SugaredLogger
	saver  Saver
	window time.Duration

	mu      sync.Mutex
	pending *models.WorkspaceState
	timer   *time.Timer
	closed  bool
}

func NewAutosaver(saver Saver, window time.Duration) *Autosaver {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Autosaver{
		log:    zap.S().Named("workspace"),
		saver:  saver,
		window: window,
	}
}

// Schedule records ws as the state to persist and restarts the quiet window.
// Consecutive calls within the window coalesce into a single write of the
// last state.
func (a *Autosaver) Schedule(ws models.WorkspaceState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.pending = &ws
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.window, a.fire)
}

func (a *Autosaver) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		a.log.Warnw("debounced workspace save failed", "error", err)
	}
}

// Flush cancels any pending delayed task and writes the pending state now.
// A no-op when nothing is pending.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	ws := a.pending
	a.pending = nil
	a.mu.Unlock()

	if ws == nil {
		return nil
	}
	return a.saver.Save(ctx, *ws)
}

// Close flushes pending state and rejects further schedules. Best-effort: the
// host may truncate the final write, so the error is logged, not returned.
func (a *Autosaver) Close(ctx context.Context) {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	if err := a.Flush(ctx); err != nil {
		a.log.Warnw("final workspace save failed", "error", err)
	}
}
