package gps

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/monteverasrl/montevera/internal/core/usecases"
	"github.com/monteverasrl/montevera/internal/pkg/metrics"
)

// Tracker runs the polling loop around a TrackerService. It is constructed
// explicitly and owns no global state; Start and Stop bound its lifetime.
type Tracker struct {
	svc      *usecases.TrackerService
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewTracker creates a tracker polling at the given interval.
func NewTracker(svc *usecases.TrackerService, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Tracker{svc: svc, interval: interval}
}

// Start launches the polling loop. The first cycle runs immediately.
// Calling Start on a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.stopped = make(chan struct{})

	go t.run(runCtx)
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel, stopped := t.cancel, t.stopped
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.stopped)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.poll(ctx)
	for {
		select {
		case <-ticker.C:
			t.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) poll(ctx context.Context) {
	start := time.Now()
	err := t.svc.Poll(ctx)
	metrics.GPSPollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.GPSPollErrors.Inc()
		slog.Warn("gps poll cycle failed", "error", err)
	}
}
