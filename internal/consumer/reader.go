package consumer

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ReaderConfig selects the sync topic and consumer group.
type ReaderConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// NewKafkaReader builds a group reader for the sync topic. Each matcher instance should use its own
// group so that every process invalidates its own cache.
func NewKafkaReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
}
