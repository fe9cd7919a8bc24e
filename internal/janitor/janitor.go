package janitor

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultMaxIdle is how long a never-completed session may sit
	// before the sweep removes it.
	DefaultMaxIdle = 30 * time.Minute

	// DefaultInterval is how often the sweep runs.
	DefaultInterval = 30 * time.Minute
)

// SessionSweeper deletes never-completed sessions started before the cutoff.
type SessionSweeper interface {
	DeleteInactiveSessions(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically removes abandoned game sessions.
type Janitor struct {
	store    SessionSweeper
	maxIdle  time.Duration
	interval time.Duration
	now      func() time.Time
}

// New creates a janitor. Zero durations fall back to the defaults.
func New(store SessionSweeper, maxIdle, interval time.Duration) *Janitor {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{store: store, maxIdle: maxIdle, interval: interval, now: time.Now}
}

// Sweep runs a single pass and returns the number of deleted sessions.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.maxIdle)
	return j.store.DeleteInactiveSessions(ctx, cutoff)
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled. Sweep failures are logged, never propagated; the next
// scheduled sweep still runs.
func (j *Janitor) Run(ctx context.Context) {
	log.Printf("[Janitor] Started (idle threshold: %s, interval: %s)", j.maxIdle, j.interval)

	j.sweepAndLog(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Janitor] Stopped")
			return
		case <-ticker.C:
			j.sweepAndLog(ctx)
		}
	}
}

func (j *Janitor) sweepAndLog(ctx context.Context) {
	deleted, err := j.Sweep(ctx)
	if err != nil {
		log.Printf("[Janitor] Sweep failed: %v", err)
		return
	}
	log.Printf("[Janitor] %d sessions deleted for inactivity", deleted)
}
