package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 2 * time.Minute

// PeriodicRefreshService recomputes hotspots on a cron schedule so the latest view,
// snapshots and enrichment stay current without client requests
type PeriodicRefreshService struct {
	hotspots *HotspotService
	schedule cron.Schedule
	spec     string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPeriodicRefreshService creates a refresh service. spec is a standard cron expression
// or descriptor such as "@every 10m".
func NewPeriodicRefreshService(hotspots *HotspotService, spec string) (*PeriodicRefreshService, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return &PeriodicRefreshService{
		hotspots: hotspots,
		schedule: schedule,
		spec:     spec,
	}, nil
}

// StartPeriodicRefresh runs one refresh immediately and then one per scheduled tick
// until ctx is cancelled or Stop is called
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(logging.EnsureLogger(ctx))
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	logging.Infow(ctx, "Starting periodic hotspot refresh", "schedule", p.spec)
	go p.refreshLoop(ctx, p.done)
	return nil
}

// Stop stops the refresh loop and waits for an in-flight refresh to finish
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.refresh(ctx)

	for {
		timer := time.NewTimer(p.nextDelay(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			logging.Infow(ctx, "Periodic refresh stopping")
			return
		case <-timer.C:
			p.refresh(ctx)
		}
	}
}

func (p *PeriodicRefreshService) nextDelay(now time.Time) time.Duration {
	delay := p.schedule.Next(now).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

func (p *PeriodicRefreshService) refresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err, _ := errors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			logging.Errorw(ctx, "Periodic refresh: recovered from panic",
				"error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
		}
	}()

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	result, err := p.hotspots.Compute(refreshCtx, p.hotspots.DefaultParams(), TriggerSchedule)
	if err != nil {
		logging.Warnw(ctx, "Periodic refresh failed", "error", err)
		return
	}
	logging.Debugw(ctx, "Periodic refresh complete",
		"runId", result.Meta.RunID, "hotspots", result.Meta.TotalHotspots)
}
