package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	catalogSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent ingestion sync that invalidated the candidate cache.",
	})
	catalogRefreshGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the most recent candidate snapshot fetched from the store.",
	})
)

func init() {
	prometheus.MustRegister(catalogSyncGauge, catalogRefreshGauge)
}

// RecordCatalogSynced updates the sync watermark gauge.
func RecordCatalogSynced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	catalogSyncGauge.Set(float64(ts.Unix()))
}

// RecordCatalogRefreshed updates the refresh watermark gauge.
func RecordCatalogRefreshed(ts time.Time) {
	if ts.IsZero() {
		return
	}
	catalogRefreshGauge.Set(float64(ts.Unix()))
}
