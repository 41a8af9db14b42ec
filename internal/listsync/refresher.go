package listsync

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/logging"
)

// Pausable is anything whose background activity can be suspended, for
// example while the client is offline or the window is hidden.
type Pausable interface {
	Pause()
	Resume()
}

// Refresher periodically re-syncs a set of lists in the background. Ticks
// that fire while paused are dropped, not queued.
type Refresher struct {
	interval time.Duration
	clock    clockwork.Clock
	log      logging.Logger
	refresh  func(ctx context.Context) error

	mu      sync.Mutex
	paused  bool
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewRefresher wires the refresh callback; interval <= 0 disables Start.
func NewRefresher(interval time.Duration, clock clockwork.Clock, log logging.Logger, refresh func(ctx context.Context) error) *Refresher {
	return &Refresher{
		interval: interval,
		clock:    clock,
		log:      log,
		refresh:  refresh,
	}
}

// Start launches the background loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	r.stopped = make(chan struct{})

	go r.run(ctx, r.stopped)
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	stop, stopped := r.stop, r.stopped
	r.stop, r.stopped = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-stopped
}

// Pause suspends refreshes without stopping the loop.
func (r *Refresher) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume lifts a Pause. The next refresh happens on the next tick.
func (r *Refresher) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

func (r *Refresher) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		r.mu.Lock()
		paused := r.paused
		r.mu.Unlock()
		if paused {
			continue
		}

		if err := r.refresh(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn(ctx, "background refresh failed", "err", err)
		}
	}
}
