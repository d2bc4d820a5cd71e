package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher lazily manages one writer per topic.
type Publisher struct {
	brokers   []string
	mu        sync.Mutex
	writers   map[string]MessageWriter
	newWriter func(brokers []string, topic string) MessageWriter
}

// NewPublisher creates a Publisher for the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		brokers:   brokers,
		writers:   make(map[string]MessageWriter),
		newWriter: newKafkaWriter,
	}
}

// PublishCatalogSynced writes a sync completion keyed by its sync id.
func (p *Publisher) PublishCatalogSynced(ctx context.Context, topic string, event CatalogSynced) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TypeCatalogSyncCompleted, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.SyncID),
		Value: payload,
		Time:  event.CompletedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeCatalogSyncCompleted)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if err := p.writerForTopic(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", TypeCatalogSyncCompleted, topic, err)
	}
	return nil
}

func (p *Publisher) writerForTopic(topic string) MessageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := p.newWriter(p.brokers, topic)
	p.writers[topic] = writer
	return writer
}

func newKafkaWriter(brokers []string, topic string) MessageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// Close releases all writers.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
