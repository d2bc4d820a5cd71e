// Package persistence selects the backing store for the matcher binaries.
package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/playdate/internal/catalog"
	"example.com/playdate/internal/config"
	"example.com/playdate/internal/matcher"
	"example.com/playdate/internal/persistence/fixture"
	"example.com/playdate/internal/persistence/postgres"
)

// Store is everything the matcher reads.
type Store interface {
	catalog.RowSource
	catalog.VocabularySource
	matcher.EntitlementLookup
	matcher.PackLookup
}

var (
	_ Store = (*postgres.Repository)(nil)
	_ Store = (*fixture.Store)(nil)
)

// Open returns the Postgres repository when POSTGRES_URL is set, otherwise the fixture store. The
// returned function releases the store's resources.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, func(), error) {
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("using postgres candidate store")
		return postgres.NewRepository(pool, postgres.WithReleaseChannels(cfg.ReleaseChannels...)), pool.Close, nil
	}

	opts := []fixture.Option{fixture.WithReleaseChannels(cfg.ReleaseChannels...)}
	if cfg.FixturePath != "" {
		store, err := fixture.Load(cfg.FixturePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("POSTGRES_URL not set, using fixture store", zap.String("path", cfg.FixturePath))
		return store, func() {}, nil
	}

	store, err := fixture.NewSeeded(opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("POSTGRES_URL and FIXTURE_PATH not set, using bundled sample catalog")
	return store, func() {}, nil
}
