package consumer

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"example.com/playdate/internal/events"
	"example.com/playdate/internal/observability"
)

// Invalidator drops cached candidate snapshots.
type Invalidator interface {
	Invalidate()
}

// SyncHandler invalidates the candidate cache when ingestion reports a completed sync.
type SyncHandler struct {
	invalidator Invalidator
	logger      *zap.Logger
}

// NewSyncHandler constructs a SyncHandler.
func NewSyncHandler(invalidator Invalidator, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{invalidator: invalidator, logger: logger}
}

// Handle implements Handler. Event types other than sync completion are acknowledged and skipped.
// Invalidation depends only on the event type, so a payload that fails to decode is logged and
// acknowledged after the cache is dropped.
func (h *SyncHandler) Handle(_ context.Context, msg Message) error {
	if msg.EventType != events.TypeCatalogSyncCompleted {
		recordIgnored(msg.EventType)
		return nil
	}

	h.invalidator.Invalidate()

	var event events.CatalogSynced
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		recordDecodeError(msg.Topic)
		h.logger.Warn("catalog sync payload not understood",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		observability.RecordCatalogSynced(msg.Timestamp)
		return nil
	}

	completed := event.CompletedAt
	if completed.IsZero() {
		completed = msg.Timestamp
	}
	observability.RecordCatalogSynced(completed)

	h.logger.Info("catalog sync applied",
		zap.String("sync_id", event.SyncID),
		zap.String("source", event.Source),
		zap.Int("activities", event.Activities),
		zap.Int("materials", event.Materials),
	)
	return nil
}
