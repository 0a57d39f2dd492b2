package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/publish"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestEnrichmentWriter_PublishesWithRunIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext()
	require.NoError(t, s.WriteLatest(ctx, hotspot.Latest{
		CreatedAt:  testNow,
		RunID:      "run-1",
		SnapshotID: "snapshot-1",
		Hotspots:   []hotspot.Hotspot{{ID: "hotspot-0", Recommendation: "Avoid Mona Road.", NeedsEnrichment: true}},
	}))

	kw := &recordingWriter{}
	writer := NewEnrichmentWriter(s, publish.NewPublisherWithWriter("campus-pulse.hotspots", kw))

	route := "Ring Road"
	patches := []hotspot.Patch{{ID: "hotspot-0", AlternativeRoute: &route}}
	require.NoError(t, writer.MergeLatest(ctx, enrichment.Run{RunID: "run-1", SnapshotID: "snapshot-1"}, patches))

	require.Len(t, kw.messages, 1)
	assert.Equal(t, "run-1", string(kw.messages[0].Key))
	var event publish.Event
	require.NoError(t, json.Unmarshal(kw.messages[0].Value, &event))
	assert.Equal(t, publish.EventEnriched, event.Type)
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "snapshot-1", event.SnapshotID)
	require.Len(t, event.Patches, 1)

	latest, err := s.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ring Road", *latest.Hotspots[0].AlternativeRoute)
}

func TestEnrichmentWriter_SupersededRunIsNotPublished(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext()
	require.NoError(t, s.WriteLatest(ctx, hotspot.Latest{
		CreatedAt: testNow,
		RunID:     "run-2",
		Hotspots:  []hotspot.Hotspot{{ID: "hotspot-0", Recommendation: "Avoid Papine Square.", NeedsEnrichment: true}},
	}))

	kw := &recordingWriter{}
	writer := NewEnrichmentWriter(s, publish.NewPublisherWithWriter("campus-pulse.hotspots", kw))

	route := "Ring Road"
	require.NoError(t, writer.MergeLatest(ctx, enrichment.Run{RunID: "run-1"}, []hotspot.Patch{{ID: "hotspot-0", AlternativeRoute: &route}}))

	assert.Empty(t, kw.messages)
	latest, err := s.GetLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest.Hotspots[0].AlternativeRoute)
}
