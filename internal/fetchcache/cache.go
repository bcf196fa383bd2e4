// Package fetchcache is a read-through cache keyed by (dataset, filter key)
// in front of a persistent document store.
package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

// Store is the document store behind the cache.
// Implementations: PostgresStore, RedisStore, BadgerStore.
type Store interface {
	// FindOne returns (nil, nil) when no entry exists for (dataset, key).
	FindOne(ctx context.Context, dataset, key string) (*contracts.CacheEntry, error)

	// InsertOne creates or overwrites the entry and registers/refreshes
	// the dataset's expiry policy.
	InsertOne(ctx context.Context, entry contracts.CacheEntry, ttl time.Duration) error
}

// Sweeper is implemented by stores that need a background pass to
// physically remove expired entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Dataset is a cache namespace with its expiry
type Dataset struct {
	Name string
	TTL  time.Duration
}

// Producer fetches a fresh payload on a miss
type Producer[T any] func(ctx context.Context) (T, error)

// Cache is the read-through cache
// ⭐ SSOT: 외부 데이터 캐싱은 여기서만
type Cache struct {
	store   Store
	logger  *logger.Logger
	metrics *metrics.Manager
	group   singleflight.Group
	now     func() time.Time
}

// New creates a cache over store. m may be nil.
func New(store Store, log *logger.Logger, m *metrics.Manager) *Cache {
	return &Cache{
		store:   store,
		logger:  log.WithComponent("fetchcache"),
		metrics: m,
		now:     time.Now,
	}
}

// Store returns the underlying store
func (c *Cache) Store() Store {
	return c.store
}

// Key builds a canonical filter key from field/value pairs,
// e.g. Key("symbol", "AAPL") == "symbol=AAPL". Fields are sorted.
func Key(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}

// GetOrFetch returns the cached payload for (ds, key) when present and
// younger than ds.TTL. Otherwise it calls produce, persists a non-empty
// result and returns it.
//
// Empty results (null, [], {}, "") are never cached and yield
// contracts.ErrDataUnavailable, so the next lookup retries upstream.
// A failed store write is logged and the fresh payload is still returned.
// When ctx is done first, ctx.Err() is returned as is.
func GetOrFetch[T any](ctx context.Context, c *Cache, ds Dataset, key string, produce Producer[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	log := c.logger.WithFields(map[string]interface{}{
		"dataset": ds.Name,
		"key":     key,
	})

	if value, ok := lookup[T](ctx, c, ds, key, log); ok {
		c.metrics.CacheLookup(ds.Name, metrics.CacheHit)
		return value, nil
	}
	c.metrics.CacheLookup(ds.Name, metrics.CacheMiss)

	// concurrent misses for the same entry share one upstream call, detached
	// from any single caller's ctx
	ch := c.group.DoChan(ds.Name+"\x00"+key, func() (interface{}, error) {
		return fetch(context.WithoutCancel(ctx), c, ds, key, produce, log)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](ctx context.Context, c *Cache, ds Dataset, key string, log *logger.Logger) (T, bool) {
	var value T

	entry, err := c.store.FindOne(ctx, ds.Name, key)
	if err != nil {
		c.metrics.CacheLookup(ds.Name, metrics.CacheStoreError)
		log.WithError(err).Warn("cache read failed, treating as miss")
		return value, false
	}
	if entry == nil || entry.Expired(ds.TTL, c.now()) {
		return value, false
	}

	if err := json.Unmarshal(entry.Payload, &value); err != nil {
		log.WithError(err).Warn("cached payload undecodable, refetching")
		return value, false
	}

	log.Debug("cache hit")
	return value, true
}

func fetch[T any](ctx context.Context, c *Cache, ds Dataset, key string, produce Producer[T], log *logger.Logger) (T, error) {
	var zero T

	value, err := produce(ctx)
	if err != nil {
		// cancellation is the caller's, not a property of the dataset
		if errors.Is(err, contracts.ErrDataUnavailable) || errors.Is(err, context.Canceled) {
			return zero, err
		}
		return zero, fmt.Errorf("%s[%s]: %w: %w", ds.Name, key, contracts.ErrDataUnavailable, err)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("%s[%s]: encode payload: %w", ds.Name, key, err)
	}
	if isEmptyPayload(payload) {
		c.metrics.CacheLookup(ds.Name, metrics.CacheEmpty)
		log.Debug("upstream returned empty payload, not caching")
		return zero, contracts.Unavailable(ds.Name, key)
	}

	entry := contracts.CacheEntry{
		Dataset:   ds.Name,
		Key:       key,
		Payload:   payload,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.InsertOne(ctx, entry, ds.TTL); err != nil {
		c.metrics.CacheWriteError(ds.Name)
		log.WithError(err).Warn("cache write failed, returning fresh payload")
	}

	return value, nil
}

func isEmptyPayload(b []byte) bool {
	switch string(b) {
	case "null", "[]", "{}", `""`:
		return true
	}
	return false
}

// Sweep removes expired entries when the store supports it.
// Returns (0, nil) for stores that expire natively.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	sw, ok := c.store.(Sweeper)
	if !ok {
		return 0, nil
	}

	n, err := sw.Sweep(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep cache: %w", err)
	}
	c.metrics.CacheSwept(n)

	return n, nil
}
