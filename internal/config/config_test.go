package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Empty(t, cfg.PostgresURL)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, []string{"sampler", "pack-only"}, cfg.ReleaseChannels)
	require.Equal(t, "catalog_sync", cfg.SyncTopic)
	require.Equal(t, 5*time.Minute, cfg.CandidateCacheTTL)
	require.Contains(t, cfg.ConsumerGroup, "playdate-matcher-")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CANDIDATE_CACHE_TTL", "30s")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 30*time.Second, cfg.CandidateCacheTTL)
	require.True(t, cfg.OTELEnabled)
}

func TestLoadReadsConfigFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_address: \":7000\"\nsync_topic: staging_sync\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SYNC_TOPIC", "override_sync")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.HTTPAddress)
	require.Equal(t, "override_sync", cfg.SyncTopic)
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CANDIDATE_CACHE_TTL", "0s")
	_, err = Load()
	require.Error(t, err)
}
