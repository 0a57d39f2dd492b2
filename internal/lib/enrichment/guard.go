package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the minimum time between enrichment runs
const DefaultInterval = 20 * time.Minute

// LastRunKey is the meta key holding the last enrichment run time
const LastRunKey = "enrichment.lastRunAt"

// Guard limits enrichment runs to one per interval using a persisted timestamp.
// Checks within one process are serialised.
type Guard struct {
	clock    Clock
	store    TimeStore
	interval time.Duration
	mu       sync.Mutex
}

// NewGuard creates a guard. A nil clock uses the wall clock.
func NewGuard(clock Clock, store TimeStore, interval time.Duration) *Guard {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Guard{clock: clock, store: store, interval: interval}
}

// Allow reports whether a run may start now and, if so, records now as the last run
func (g *Guard) Allow(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	last, found, err := g.store.GetTime(ctx, LastRunKey)
	if err != nil {
		return false, fmt.Errorf("failed to read last enrichment run: %w", err)
	}
	if found && now.Sub(last) < g.interval {
		return false, nil
	}

	if err := g.store.SetTime(ctx, LastRunKey, now); err != nil {
		return false, fmt.Errorf("failed to record enrichment run: %w", err)
	}
	return true, nil
}
