// Package events defines the catalog sync payloads exchanged between ingestion and the matcher.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried in the event_type header.
const (
	TypeCatalogSyncCompleted = "catalog.sync_completed"
)

// DefaultSyncTopic is the topic ingestion publishes sync completions to.
const DefaultSyncTopic = "catalog_sync"

// CatalogSynced is emitted when an ingestion sync has rewritten the candidate store.
type CatalogSynced struct {
	SyncID      string    `json:"sync_id"`
	Source      string    `json:"source"`
	Activities  int       `json:"activities"`
	Materials   int       `json:"materials"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewCatalogSynced stamps a sync completion with a fresh id and the current time.
func NewCatalogSynced(source string, activities, materials int) CatalogSynced {
	return CatalogSynced{
		SyncID:      uuid.NewString(),
		Source:      source,
		Activities:  activities,
		Materials:   materials,
		CompletedAt: time.Now().UTC(),
	}
}
