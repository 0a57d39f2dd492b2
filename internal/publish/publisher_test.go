package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// testContext carries a logger the way prefab request contexts do
func testContext() context.Context {
	return logging.With(context.Background(), logging.NewDevLogger())
}

type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

func TestNewPublisher_DisabledWithoutBrokers(t *testing.T) {
	p, err := NewPublisher(Config{Topic: "hotspots"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishLatest(testContext(), hotspot.Latest{RunID: "run"}))
	assert.NoError(t, p.Close())

	_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestPublishLatest(t *testing.T) {
	writer := new(MockMessageWriter)
	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)

	p := NewPublisherWithWriter("hotspots", writer)
	latest := hotspot.Latest{
		CreatedAt:  time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC),
		RunID:      "run-1",
		SnapshotID: "snapshot-1",
		Hotspots:   []hotspot.Hotspot{{ID: "hotspot-0", Count: 5}},
	}
	require.NoError(t, p.PublishLatest(testContext(), latest))

	require.Len(t, sent, 1)
	assert.Equal(t, "run-1", string(sent[0].Key))
	assert.Equal(t, "type", sent[0].Headers[0].Key)
	assert.Equal(t, EventLatest, string(sent[0].Headers[0].Value))

	var event Event
	require.NoError(t, json.Unmarshal(sent[0].Value, &event))
	assert.Equal(t, EventLatest, event.Type)
	assert.Equal(t, "snapshot-1", event.SnapshotID)
	require.Len(t, event.Hotspots, 1)
	assert.Equal(t, 5, event.Hotspots[0].Count)
	writer.AssertExpectations(t)
}

func TestPublishEnriched_WriterError(t *testing.T) {
	writer := new(MockMessageWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewPublisherWithWriter("hotspots", writer)
	summary := "Thefts"
	err := p.PublishEnriched(testContext(), "run-1", "snapshot-1", []hotspot.Patch{{ID: "hotspot-0", Summary: &summary}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
