package enrichment

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/metrics"
	"github.com/campuspulse/pulse/server/internal/telemetry"
)

// Defaults for Config
const (
	DefaultChunkSize = 10
	DefaultTimeout   = 2 * time.Minute
)

// Config controls which hotspots are enriched and how they are batched
type Config struct {
	ChunkSize int
	// RoutingTypes limits enrichment to these alert types; empty means all types
	RoutingTypes []string
	// Timeout bounds a whole background run
	Timeout time.Duration
}

// Enricher asks a text generator for summaries and alternative routes for hotspots the
// heuristic could not route around, and writes the results back to the store
type Enricher struct {
	guard     *Guard
	generator Generator
	writer    Writer
	clock     Clock
	config    Config
	wg        sync.WaitGroup
}

// NewEnricher creates an enricher. A nil clock uses the wall clock.
func NewEnricher(guard *Guard, generator Generator, writer Writer, clock Clock, config Config) *Enricher {
	if clock == nil {
		clock = SystemClock{}
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Enricher{
		guard:     guard,
		generator: generator,
		writer:    writer,
		clock:     clock,
		config:    config,
	}
}

// Start runs enrichment in a background goroutine. The run keeps ctx's values (logger,
// trace) but not its cancellation, so it outlives the request that triggered it.
// Use Wait to block until background runs finish.
func (e *Enricher) Start(ctx context.Context, run Run) {
	base := logging.EnsureLogger(context.WithoutCancel(ctx))
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(base, e.config.Timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				err, _ := errors.ParseStack(debug.Stack())
				skipFrames := 3
				numFrames := 5
				logging.Errorw(ctx, "Enrichment: recovered from panic",
					"error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
			}
		}()

		if _, err := e.Run(ctx, run); err != nil {
			logging.Warnw(ctx, "Enrichment run failed", "runId", run.RunID, "error", err)
		}
	}()
}

// Wait blocks until all background runs started with Start have finished
func (e *Enricher) Wait() {
	e.wg.Wait()
}

// Run performs one enrichment pass synchronously. Chunk failures are logged and skipped;
// the returned error is only for guard failures.
func (e *Enricher) Run(ctx context.Context, run Run) (Result, error) {
	candidates := e.Candidates(run.Hotspots)
	result := Result{Candidates: len(candidates)}
	if len(candidates) == 0 {
		logging.Debugw(ctx, "Enrichment: no hotspots need enrichment", "runId", run.RunID)
		metrics.RecordEnrichmentRun("nothing_to_do")
		return result, nil
	}

	allowed, err := e.guard.Allow(ctx)
	if err != nil {
		metrics.RecordEnrichmentRun("error")
		return result, err
	}
	if !allowed {
		logging.Infow(ctx, "Enrichment: skipped, ran recently", "runId", run.RunID)
		metrics.RecordEnrichmentRun("skipped")
		result.Skipped = true
		return result, nil
	}

	ctx, span := telemetry.StartEnrichmentSpan(ctx, run.RunID, len(candidates))
	defer span.End()

	size := e.config.ChunkSize
	if run.ChunkSize > 0 {
		size = run.ChunkSize
	}
	chunks := Chunk(candidates, size)
	result.Chunks = len(chunks)
	for i, chunk := range chunks {
		applied, ok := e.enrichChunk(ctx, run, i, chunk)
		if !ok {
			result.FailedChunks++
			continue
		}
		result.AppliedPatches += applied
	}

	logging.Infow(ctx, "Enrichment: run complete",
		"runId", run.RunID, "candidates", result.Candidates, "chunks", result.Chunks,
		"failedChunks", result.FailedChunks, "applied", result.AppliedPatches)
	metrics.RecordEnrichmentRun("completed")
	return result, nil
}

// Candidates returns hotspots without an alternative route whose type is routing relevant
func (e *Enricher) Candidates(hotspots []hotspot.Hotspot) []hotspot.Hotspot {
	allowed := make(map[string]bool, len(e.config.RoutingTypes))
	for _, t := range e.config.RoutingTypes {
		allowed[t] = true
	}

	var out []hotspot.Hotspot
	for _, h := range hotspots {
		if h.AlternativeRoute != nil && *h.AlternativeRoute != "" {
			continue
		}
		if len(allowed) > 0 && !allowed[h.Type] {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Chunk splits hotspots into batches of at most size
func Chunk(hotspots []hotspot.Hotspot, size int) [][]hotspot.Hotspot {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]hotspot.Hotspot
	for start := 0; start < len(hotspots); start += size {
		end := start + size
		if end > len(hotspots) {
			end = len(hotspots)
		}
		chunks = append(chunks, hotspots[start:end])
	}
	return chunks
}

// enrichChunk generates, parses and persists one chunk. It reports the number of patches
// applied and whether the chunk succeeded.
func (e *Enricher) enrichChunk(ctx context.Context, run Run, index int, chunk []hotspot.Hotspot) (int, bool) {
	gctx, span := telemetry.StartGenerateSpan(ctx, e.generator.Name(), index)
	text, err := e.generator.Generate(gctx, BuildPrompt(chunk))
	span.End()
	if err != nil {
		logging.Warnw(ctx, "Enrichment: chunk generation failed", "runId", run.RunID, "chunk", index, "error", err)
		metrics.RecordEnrichmentChunk("generate_error")
		return 0, false
	}

	parsed, err := ParseResponse(text)
	if err != nil {
		logging.Warnw(ctx, "Enrichment: chunk response unparseable", "runId", run.RunID, "chunk", index, "error", err)
		metrics.RecordEnrichmentChunk("parse_error")
		return 0, false
	}

	// Only accept patches for hotspots in this chunk
	inChunk := make(map[string]bool, len(chunk))
	for _, h := range chunk {
		inChunk[h.ID] = true
	}
	var patches []hotspot.Patch
	var entries []hotspot.EnrichmentEntry
	now := e.clock.Now()
	for _, p := range parsed {
		if !inChunk[p.ID] {
			continue
		}
		patches = append(patches, p)
		entries = append(entries, hotspot.EnrichmentEntry{
			HotspotID:        p.ID,
			Summary:          p.Summary,
			Recommendation:   p.Recommendation,
			AlternativeRoute: p.AlternativeRoute,
			CreatedAt:        now,
		})
	}
	if len(patches) == 0 {
		metrics.RecordEnrichmentChunk("empty")
		return 0, true
	}

	if err := e.writer.MergeLatest(ctx, run, patches); err != nil {
		logging.Errorw(ctx, "Enrichment: failed to merge latest", "runId", run.RunID, "error", err)
		metrics.RecordStoreError("merge_latest")
	}
	if run.SnapshotID != "" {
		if err := e.writer.AppendSnapshotEnrichments(ctx, run.SnapshotID, entries); err != nil {
			logging.Errorw(ctx, "Enrichment: failed to append snapshot enrichments",
				"runId", run.RunID, "snapshotId", run.SnapshotID, "error", err)
			metrics.RecordStoreError("append_snapshot")
		}
	}

	metrics.RecordEnrichmentChunk("ok")
	return len(patches), true
}
