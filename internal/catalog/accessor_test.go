package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"example.com/playdate/internal/domain"
)

func TestCandidatesServedFromSnapshotWithinTTL(t *testing.T) {
	clock := newFakeClock()
	source := &countingSource{rows: sampleRows()}
	accessor := NewAccessor(source, WithClock(clock.Now))

	first, err := accessor.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	clock.Advance(4 * time.Minute)
	second, err := accessor.Candidates(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.Calls())
}

func TestCandidatesRefetchAfterTTL(t *testing.T) {
	clock := newFakeClock()
	source := &countingSource{rows: sampleRows()}
	accessor := NewAccessor(source, WithClock(clock.Now), WithTTL(time.Minute))

	_, err := accessor.Candidates(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = accessor.Candidates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.Calls())
}

func TestInvalidateForcesRefetchWithinTTL(t *testing.T) {
	clock := newFakeClock()
	source := &countingSource{rows: sampleRows()}
	accessor := NewAccessor(source, WithClock(clock.Now))
	before := testutil.ToFloat64(invalidations)

	_, err := accessor.Candidates(context.Background())
	require.NoError(t, err)

	accessor.Invalidate()
	_, ok := accessor.Snapshot()
	require.False(t, ok)

	clock.Advance(time.Second)
	_, err = accessor.Candidates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.Calls())
	require.Equal(t, before+1, testutil.ToFloat64(invalidations))
}

func TestStoreFailureIsWrappedAndNotCached(t *testing.T) {
	source := &countingSource{err: errors.New("connection refused")}
	accessor := NewAccessor(source)

	var m dto.Metric
	require.NoError(t, fetchDuration.Write(&m))
	observedBefore := m.GetHistogram().GetSampleCount()

	_, err := accessor.Candidates(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.ErrorContains(t, err, "connection refused")

	_, err = accessor.Candidates(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, source.Calls())

	m.Reset()
	require.NoError(t, fetchDuration.Write(&m))
	require.Equal(t, observedBefore+2, m.GetHistogram().GetSampleCount())
}

func TestInvalidateDuringFetchKeepsResultUncached(t *testing.T) {
	source := &blockingSource{
		rows:    sampleRows(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	accessor := NewAccessor(source)

	var (
		wg   sync.WaitGroup
		rows []domain.CandidateRow
		err  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, err = accessor.Candidates(context.Background())
	}()

	<-source.entered
	accessor.Invalidate()
	close(source.release)
	wg.Wait()

	require.NoError(t, err)
	require.Len(t, rows, 2)
	_, ok := accessor.Snapshot()
	require.False(t, ok, "rows fetched before an invalidation must not be cached")

	_, err = accessor.Candidates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.Calls())
	_, ok = accessor.Snapshot()
	require.True(t, ok)
}

func sampleRows() []domain.CandidateRow {
	m1 := "m1"
	return []domain.CandidateRow{
		{ID: "a", Slug: "a", Title: "Alpha", MaterialID: &m1},
		{ID: "b", Slug: "b", Title: "Bravo"},
	}
}

func TestCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	source := &blockingSource{
		rows:    sampleRows(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	accessor := NewAccessor(source)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := accessor.Candidates(ctxA)
		errA <- err
	}()
	<-source.entered

	type result struct {
		rows []domain.CandidateRow
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		rows, err := accessor.Candidates(context.Background())
		resB <- result{rows: rows, err: err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(source.release)

	got := <-resB
	require.NoError(t, got.err)
	require.Len(t, got.rows, 2)
	require.Equal(t, 1, source.Calls())

	_, cached := accessor.Snapshot()
	require.True(t, cached)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	rows  []domain.CandidateRow
	err   error
}

func (s *countingSource) CandidateRows(context.Context) ([]domain.CandidateRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *countingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type blockingSource struct {
	mu      sync.Mutex
	calls   int
	rows    []domain.CandidateRow
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) CandidateRows(ctx context.Context) ([]domain.CandidateRow, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		s.entered <- struct{}{}
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.rows, nil
}

func (s *blockingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
