package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/segmentio/kafka-go"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/metrics"
)

// Event types published to the hotspot topic
const (
	EventLatest   = "hotspots.latest"
	EventEnriched = "hotspots.enriched"
)

const defaultWriteTimeout = 10 * time.Second

// Config selects the Kafka cluster and topic. No brokers disables publishing.
type Config struct {
	Brokers []string
	Topic   string
}

// Event is the message body published for hotspot changes
type Event struct {
	Type       string            `json:"type"`
	RunID      string            `json:"runId"`
	SnapshotID string            `json:"snapshotId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Hotspots   []hotspot.Hotspot `json:"hotspots,omitempty"`
	Patches    []hotspot.Patch   `json:"patches,omitempty"`
}

// MessageWriter is the subset of *kafka.Writer used for publishing
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher fans hotspot updates out to downstream consumers
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher creates a Kafka-backed publisher, or a disabled one when no brokers are set
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return &Publisher{}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	return NewPublisherWithWriter(cfg.Topic, &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}), nil
}

// NewPublisherWithWriter creates a publisher over an existing writer
func NewPublisherWithWriter(topic string, writer MessageWriter) *Publisher {
	return &Publisher{writer: writer, topic: topic}
}

// Enabled reports whether events are sent anywhere
func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// PublishLatest announces a new latest hotspot view
func (p *Publisher) PublishLatest(ctx context.Context, latest hotspot.Latest) error {
	return p.publish(ctx, Event{
		Type:       EventLatest,
		RunID:      latest.RunID,
		SnapshotID: latest.SnapshotID,
		CreatedAt:  latest.CreatedAt,
		Hotspots:   latest.Hotspots,
	})
}

// PublishEnriched announces enrichment patches merged into the latest view
func (p *Publisher) PublishEnriched(ctx context.Context, runID, snapshotID string, patches []hotspot.Patch) error {
	return p.publish(ctx, Event{
		Type:       EventEnriched,
		RunID:      runID,
		SnapshotID: snapshotID,
		CreatedAt:  time.Now().UTC(),
		Patches:    patches,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	if !p.Enabled() {
		metrics.RecordPublish("disabled")
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		metrics.RecordPublish("error")
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		metrics.RecordPublish("error")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	logging.Debugw(ctx, "Published hotspot event", "type", event.Type, "runId", event.RunID, "topic", p.topic)
	metrics.RecordPublish("ok")
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
