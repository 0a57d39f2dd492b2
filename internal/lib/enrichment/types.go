package enrichment

import (
	"context"
	"time"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// Prompt is a provider-neutral chat request
type Prompt struct {
	System      string
	Messages    []string
	MaxTokens   int
	Temperature float32
}

// Generator produces text for a prompt
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// TimeStore persists named timestamps
type TimeStore interface {
	GetTime(ctx context.Context, key string) (time.Time, bool, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}

// Writer persists enrichment results. MergeLatest must leave the latest view alone once
// a newer run has replaced it.
type Writer interface {
	MergeLatest(ctx context.Context, run Run, patches []hotspot.Patch) error
	AppendSnapshotEnrichments(ctx context.Context, snapshotID string, entries []hotspot.EnrichmentEntry) error
}

// Run is the output of one pipeline run handed to the enricher
type Run struct {
	RunID      string
	SnapshotID string
	Hotspots   []hotspot.Hotspot
	// ChunkSize overrides the enricher's configured chunk size when positive
	ChunkSize int
}

// Result summarises an enrichment run
type Result struct {
	Skipped        bool `json:"skipped"`
	Candidates     int  `json:"candidates"`
	Chunks         int  `json:"chunks"`
	FailedChunks   int  `json:"failedChunks"`
	AppliedPatches int  `json:"appliedPatches"`
}
