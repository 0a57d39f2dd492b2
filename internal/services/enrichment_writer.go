package services

import (
	"context"

	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/publish"
)

// EnrichmentStore is the persistence the enricher writes through
type EnrichmentStore interface {
	MergeLatest(ctx context.Context, runID string, patches []hotspot.Patch) (bool, error)
	AppendSnapshotEnrichments(ctx context.Context, snapshotID string, entries []hotspot.EnrichmentEntry) error
}

type publishingWriter struct {
	store     EnrichmentStore
	publisher *publish.Publisher
}

// NewEnrichmentWriter returns an enrichment.Writer that announces merged patches
// on the publisher after they are stored
func NewEnrichmentWriter(store EnrichmentStore, publisher *publish.Publisher) enrichment.Writer {
	return &publishingWriter{store: store, publisher: publisher}
}

func (w *publishingWriter) MergeLatest(ctx context.Context, run enrichment.Run, patches []hotspot.Patch) error {
	merged, err := w.store.MergeLatest(ctx, run.RunID, patches)
	if err != nil || !merged {
		return err
	}
	if err := w.publisher.PublishEnriched(ctx, run.RunID, run.SnapshotID, patches); err != nil {
		logging.Warnw(ctx, "Enrichment: failed to publish patches",
			"runId", run.RunID, "patches", len(patches), "error", err)
	}
	return nil
}

func (w *publishingWriter) AppendSnapshotEnrichments(ctx context.Context, snapshotID string, entries []hotspot.EnrichmentEntry) error {
	return w.store.AppendSnapshotEnrichments(ctx, snapshotID, entries)
}
