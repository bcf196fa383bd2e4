package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wonny/finscore/internal/contracts"
)

// BadgerStore is an embedded store. Entries carry a native badger TTL;
// Sweep reclaims value-log space held by expired entries.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a store under dir, or in memory when dir is empty
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close releases the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func badgerKey(dataset, key string) []byte {
	return []byte(dataset + "\x00" + key)
}

// FindOne implements Store
func (s *BadgerStore) FindOne(_ context.Context, dataset, key string) (*contracts.CacheEntry, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(dataset, key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s/%s: %w", dataset, key, err)
	}

	var entry contracts.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %s/%s: %w", dataset, key, err)
	}

	return &entry, nil
}

// InsertOne implements Store
func (s *BadgerStore) InsertOne(_ context.Context, entry contracts.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(badgerKey(entry.Dataset, entry.Key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("set cache entry %s/%s: %w", entry.Dataset, entry.Key, err)
	}

	return nil
}

// Sweep runs value-log GC until there is nothing left to rewrite.
// Returns the number of rewritten log files.
func (s *BadgerStore) Sweep(ctx context.Context) (int64, error) {
	var rewritten int64
	for {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}

		err := s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			rewritten++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return rewritten, nil
		default:
			return rewritten, fmt.Errorf("badger value log gc: %w", err)
		}
	}
}
