package contracts

import (
	"encoding/json"
	"time"
)

// CacheEntry is one cached upstream payload.
// At most one entry exists per (Dataset, Key).
type CacheEntry struct {
	Dataset   string          `json:"dataset"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Expired reports whether the entry is older than ttl at now
func (e CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(ttl))
}
