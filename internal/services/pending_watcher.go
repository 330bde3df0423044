package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"caixa/internal/store"
)

// DefaultPendingPollInterval matches the nav badge refresh cadence.
const DefaultPendingPollInterval = time.Minute

// PendingWatcher polls the pending-account count for an admin session's nav
// badge. One watcher is started when an admin session is established and
// stopped when it signs out; no watcher runs for regular sessions.
type PendingWatcher struct {
	profiles store.ProfileStore
	interval time.Duration

	count int64

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPendingWatcher(profiles store.ProfileStore, interval time.Duration) *PendingWatcher {
	if interval <= 0 {
		interval = DefaultPendingPollInterval
	}
	return &PendingWatcher{
		profiles: profiles,
		interval: interval,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (w *PendingWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("pending watcher is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	// Poll once up front so the badge has a value before the first tick.
	w.poll(ctx)

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Pending watcher started", "poll_interval", w.interval)
	return nil
}

// Stop halts the polling loop and waits for it to finish.
func (w *PendingWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Pending watcher stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Pending watcher stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the watcher is currently polling
func (w *PendingWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Count returns the most recently observed pending count.
func (w *PendingWatcher) Count() int {
	return int(atomic.LoadInt64(&w.count))
}

func (w *PendingWatcher) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *PendingWatcher) poll(ctx context.Context) {
	n, err := w.profiles.CountPending(ctx)
	if err != nil {
		// Keep the last good value; the next tick retries.
		slog.ErrorContext(ctx, "Failed to count pending accounts", "error", err)
		return
	}
	atomic.StoreInt64(&w.count, int64(n))
}
