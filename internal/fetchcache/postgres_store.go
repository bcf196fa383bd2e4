package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/finscore/internal/contracts"
)

// pgxIface is satisfied by *pgxpool.Pool and pgxmock
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps cache entries as JSONB documents in cache_entries.
// Expiry is enforced on read by the Cache and physically by Sweep.
type PostgresStore struct {
	db pgxIface
}

// NewPostgresStore creates a store over a pgx pool
func NewPostgresStore(db pgxIface) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindOne implements Store
func (s *PostgresStore) FindOne(ctx context.Context, dataset, key string) (*contracts.CacheEntry, error) {
	query := `
		SELECT payload, created_at
		FROM cache_entries
		WHERE dataset = $1 AND filter_key = $2
	`

	entry := contracts.CacheEntry{Dataset: dataset, Key: key}
	var payload []byte
	err := s.db.QueryRow(ctx, query, dataset, key).Scan(&payload, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cache entry %s/%s: %w", dataset, key, err)
	}
	entry.Payload = payload

	return &entry, nil
}

// InsertOne implements Store. Concurrent writers for the same key
// resolve last-writer-wins through the upsert.
func (s *PostgresStore) InsertOne(ctx context.Context, entry contracts.CacheEntry, ttl time.Duration) error {
	upsertEntry := `
		INSERT INTO cache_entries (dataset, filter_key, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dataset, filter_key)
		DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
	`
	if _, err := s.db.Exec(ctx, upsertEntry, entry.Dataset, entry.Key, []byte(entry.Payload), entry.CreatedAt); err != nil {
		return fmt.Errorf("insert cache entry %s/%s: %w", entry.Dataset, entry.Key, err)
	}

	upsertPolicy := `
		INSERT INTO cache_ttl_policies (dataset, ttl_seconds, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (dataset)
		DO UPDATE SET ttl_seconds = EXCLUDED.ttl_seconds, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, upsertPolicy, entry.Dataset, int64(ttl/time.Second)); err != nil {
		return fmt.Errorf("register ttl policy %s: %w", entry.Dataset, err)
	}

	return nil
}

// Sweep deletes entries older than their dataset's ttl policy
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM cache_entries e
		USING cache_ttl_policies p
		WHERE e.dataset = p.dataset
		  AND e.created_at < now() - make_interval(secs => p.ttl_seconds)
	`

	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}

	return tag.RowsAffected(), nil
}
