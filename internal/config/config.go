// Package config centralises configuration parsing for the playdate matcher.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures runtime configuration values for the matcher API and CLI.
type Config struct {
	HTTPAddress       string
	PostgresURL       string // empty selects the fixture store
	FixturePath       string // empty selects the bundled sample catalog
	ReleaseChannels   []string
	KafkaBrokers      []string // empty disables the sync consumer
	ConsumerGroup     string
	SyncTopic         string
	JWTSecret         string
	JWTIssuer         string
	CandidateCacheTTL time.Duration
	LogMode           string
	OTELEnabled       bool
	CORSOrigin        string
}

// Load reads environment variables, and the YAML file named by CONFIG_FILE when set, applying
// defaults suited to local development.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which callers may have bound to command-line flags.
func LoadFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		HTTPAddress:       v.GetString("http_address"),
		PostgresURL:       v.GetString("postgres_url"),
		FixturePath:       v.GetString("fixture_path"),
		ReleaseChannels:   splitAndTrim(v.GetString("release_channels")),
		KafkaBrokers:      splitAndTrim(v.GetString("kafka_brokers")),
		ConsumerGroup:     v.GetString("consumer_group_id"),
		SyncTopic:         v.GetString("sync_topic"),
		JWTSecret:         v.GetString("jwt_secret"),
		JWTIssuer:         v.GetString("jwt_issuer"),
		CandidateCacheTTL: v.GetDuration("candidate_cache_ttl"),
		LogMode:           v.GetString("log_mode"),
		OTELEnabled:       v.GetBool("otel_enabled"),
		CORSOrigin:        v.GetString("cors_origin"),
	}
	if cfg.CandidateCacheTTL <= 0 {
		return Config{}, fmt.Errorf("candidate_cache_ttl must be positive, got %s", cfg.CandidateCacheTTL)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")
	v.SetDefault("http_address", ":8080")
	v.SetDefault("postgres_url", "")
	v.SetDefault("fixture_path", "")
	v.SetDefault("release_channels", "sampler,pack-only")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("consumer_group_id", defaultConsumerGroup())
	v.SetDefault("sync_topic", "catalog_sync")
	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("jwt_issuer", "creaseworks.identity")
	v.SetDefault("candidate_cache_ttl", 5*time.Minute)
	v.SetDefault("log_mode", "development")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("cors_origin", "http://localhost:3000")
}

// defaultConsumerGroup gives every host its own group so each process sees every sync signal.
func defaultConsumerGroup() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "playdate-matcher-" + host
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
