// Package catalog reads playdate candidates and picker vocabularies from the backing store.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"example.com/playdate/internal/domain"
	"example.com/playdate/internal/observability"
)

const (
	// DefaultTTL is how long a candidate snapshot is served before the store is queried again.
	DefaultTTL = 5 * time.Minute

	// refreshTimeout bounds a shared store query, which no longer follows any single caller's deadline.
	refreshTimeout = 30 * time.Second
)

// RowSource returns one row per (playdate, material) pair for every ready, publicly offerable playdate.
type RowSource interface {
	CandidateRows(ctx context.Context) ([]domain.CandidateRow, error)
}

// Snapshot is the cached result of one store query.
type Snapshot struct {
	Rows      []domain.CandidateRow
	FetchedAt time.Time
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithTTL overrides the snapshot freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(a *Accessor) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger used to report refreshes and invalidations.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Accessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Accessor serves candidate rows from a time-bounded snapshot, refreshing from the RowSource when
// the snapshot is missing or stale. Returned rows are shared and must not be modified.
type Accessor struct {
	source RowSource
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu         sync.Mutex
	snapshot   *Snapshot
	generation uint64

	flights singleflight.Group
}

// NewAccessor constructs an Accessor over the provided source.
func NewAccessor(source RowSource, opts ...Option) *Accessor {
	a := &Accessor{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Candidates returns the cached rows when they are younger than the TTL, otherwise it queries the
// store once and caches the result. Concurrent refreshes of the same generation share one query;
// a caller whose context ends stops waiting without cancelling the query for the others.
func (a *Accessor) Candidates(ctx context.Context) ([]domain.CandidateRow, error) {
	rows, gen, ok := a.fresh()
	if ok {
		cacheHits.Inc()
		return rows, nil
	}
	cacheMisses.Inc()

	ch := a.flights.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return a.refresh(fetchCtx, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			sharedRefreshes.Inc()
		}
		return res.Val.([]domain.CandidateRow), nil
	}
}

// Invalidate drops the cached snapshot. A refresh already in flight still returns its rows to its
// callers but is not cached.
func (a *Accessor) Invalidate() {
	a.mu.Lock()
	a.snapshot = nil
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	invalidations.Inc()
	a.logger.Debug("candidate cache invalidated", zap.Uint64("generation", gen))
}

// Snapshot returns the current cached snapshot, if any.
func (a *Accessor) Snapshot() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshot == nil {
		return Snapshot{}, false
	}
	return *a.snapshot, true
}

func (a *Accessor) fresh() ([]domain.CandidateRow, uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshot != nil && a.now().Sub(a.snapshot.FetchedAt) < a.ttl {
		return a.snapshot.Rows, a.generation, true
	}
	return nil, a.generation, false
}

func (a *Accessor) refresh(ctx context.Context, gen uint64) ([]domain.CandidateRow, error) {
	start := time.Now()
	rows, err := a.source.CandidateRows(ctx)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.Inc()
		a.logger.Warn("candidate fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	fetchedAt := a.now()
	a.mu.Lock()
	cached := a.generation == gen
	if cached {
		a.snapshot = &Snapshot{Rows: rows, FetchedAt: fetchedAt}
	}
	a.mu.Unlock()

	if cached {
		observability.RecordCatalogRefreshed(fetchedAt)
	}
	a.logger.Debug("candidate rows fetched",
		zap.Int("rows", len(rows)),
		zap.Bool("cached", cached),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rows, nil
}
