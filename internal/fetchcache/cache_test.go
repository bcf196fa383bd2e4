package fetchcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

// memStore is an in-process Store for tests
type memStore struct {
	mu       sync.Mutex
	entries  map[string]contracts.CacheEntry
	readErr  error
	writeErr error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]contracts.CacheEntry)}
}

func (s *memStore) FindOne(_ context.Context, dataset, key string) (*contracts.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	e, ok := s.entries[dataset+"|"+key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memStore) InsertOne(_ context.Context, entry contracts.CacheEntry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.entries[entry.Dataset+"|"+entry.Key] = entry
	return nil
}

type quote struct {
	Symbol string  `json:"symbol"`
	EPS    float64 `json:"eps"`
}

var quotes = Dataset{Name: "quotes", TTL: time.Hour}

func newTestCache(store Store, now *time.Time) *Cache {
	c := New(store, logger.Nop(), metrics.New())
	c.now = func() time.Time { return *now }
	return c
}

func countingProducer(calls *int32, q quote) Producer[quote] {
	return func(context.Context) (quote, error) {
		atomic.AddInt32(calls, 1)
		return q, nil
	}
}

func TestGetOrFetch_MissThenHit(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := newMemStore()
	c := newTestCache(store, &now)
	ctx := context.Background()

	var calls int32
	produce := countingProducer(&calls, quote{Symbol: "AAPL", EPS: 6.1})

	first, err := GetOrFetch(ctx, c, quotes, Key("symbol", "AAPL"), produce)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)

	now = now.Add(59 * time.Minute)
	second, err := GetOrFetch(ctx, c, quotes, Key("symbol", "AAPL"), produce)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second lookup must be served from cache")
	assert.Equal(t, 1, store.writes)
}

func TestGetOrFetch_ExpiredEntryRefetches(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := newMemStore()
	c := newTestCache(store, &now)
	ctx := context.Background()

	var calls int32
	_, err := GetOrFetch(ctx, c, quotes, "symbol=MSFT", countingProducer(&calls, quote{Symbol: "MSFT", EPS: 1}))
	require.NoError(t, err)

	// age == ttl counts as expired
	now = now.Add(time.Hour)
	got, err := GetOrFetch(ctx, c, quotes, "symbol=MSFT", countingProducer(&calls, quote{Symbol: "MSFT", EPS: 2}))
	require.NoError(t, err)

	assert.Equal(t, 2.0, got.EPS)
	assert.Equal(t, int32(2), calls)

	entry, err := store.FindOne(ctx, "quotes", "symbol=MSFT")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, now, entry.CreatedAt, "entry must be overwritten, not duplicated")
}

func TestGetOrFetch_EmptyPayloadNotCached(t *testing.T) {
	tests := []struct {
		name    string
		produce Producer[[]quote]
	}{
		{"nil slice", func(context.Context) ([]quote, error) { return nil, nil }},
		{"empty slice", func(context.Context) ([]quote, error) { return []quote{}, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			store := newMemStore()
			c := newTestCache(store, &now)

			_, err := GetOrFetch(context.Background(), c, Dataset{Name: "sector_peers", TTL: time.Hour}, "sector=Technology", tt.produce)

			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
			assert.Equal(t, 0, store.writes)
		})
	}
}

func TestGetOrFetch_ProducerErrorIsUnavailable(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	c := newTestCache(store, &now)

	_, err := GetOrFetch(context.Background(), c, quotes, "symbol=XXXX", func(context.Context) (quote, error) {
		return quote{}, errors.New("connection reset")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, store.writes)
}

func TestGetOrFetch_WriteFailureStillReturnsValue(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	store.writeErr = errors.New("disk full")
	c := newTestCache(store, &now)

	got, err := GetOrFetch(context.Background(), c, quotes, "symbol=AAPL", func(context.Context) (quote, error) {
		return quote{Symbol: "AAPL", EPS: 6.1}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 6.1, got.EPS)
	assert.Equal(t, 1, store.writes)
}

func TestGetOrFetch_ReadFailureIsMiss(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	store.readErr = errors.New("connection refused")
	c := newTestCache(store, &now)

	var calls int32
	got, err := GetOrFetch(context.Background(), c, quotes, "symbol=AAPL", countingProducer(&calls, quote{Symbol: "AAPL"}))

	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, int32(1), calls)
}

func TestGetOrFetch_ConcurrentMissesShareFetch(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	c := newTestCache(store, &now)

	release := make(chan struct{})
	var calls int32
	produce := func(context.Context) (quote, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return quote{Symbol: "NVDA"}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan quote, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := GetOrFetch(context.Background(), c, quotes, "symbol=NVDA", produce)
			if err == nil {
				results <- q
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for q := range results {
		assert.Equal(t, "NVDA", q.Symbol)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(workers))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestGetOrFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	c := newTestCache(store, &now)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	var calls int32
	produce := func(ctx context.Context) (quote, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		select {
		case <-release:
			return quote{Symbol: "AAPL", EPS: 6.1}, nil
		case <-ctx.Done():
			return quote{}, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := GetOrFetch(ctxA, c, quotes, "symbol=AAPL", produce)
		errA <- err
	}()
	<-started

	type outcome struct {
		q   quote
		err error
	}
	resB := make(chan outcome, 1)
	go func() {
		q, err := GetOrFetch(context.Background(), c, quotes, "symbol=AAPL", produce)
		resB <- outcome{q, err}
	}()

	// let B join the in-flight fetch before A goes away
	time.Sleep(50 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, contracts.ErrDataUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)

	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, "AAPL", res.q.Symbol)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never received the shared payload")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, store.writes)
}

func TestGetOrFetch_CancelledContext(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	c := newTestCache(store, &now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	_, err := GetOrFetch(ctx, c, quotes, "symbol=AAPL", countingProducer(&calls, quote{Symbol: "AAPL"}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, contracts.ErrDataUnavailable)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "symbol=AAPL", Key("symbol", "AAPL"))
	assert.Equal(t, "limit=50&sector=Consumer+Cyclical", Key("sector", "Consumer Cyclical", "limit", "50"))
	assert.Equal(t, Key("a", "1", "b", "2"), Key("b", "2", "a", "1"))
}

type sweepingStore struct {
	*memStore
	removed int64
}

func (s *sweepingStore) Sweep(context.Context) (int64, error) {
	return s.removed, nil
}

func TestCache_Sweep(t *testing.T) {
	now := time.Now()

	plain := newTestCache(newMemStore(), &now)
	n, err := plain.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	sweeping := newTestCache(&sweepingStore{memStore: newMemStore(), removed: 7}, &now)
	n, err = sweeping.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
