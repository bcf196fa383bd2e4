package contracts

import (
	"testing"
	"time"
)

func TestCacheEntry_Expired(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{Dataset: "quotes", Key: "symbol=AAPL", CreatedAt: created}

	tests := []struct {
		name string
		now  time.Time
		ttl  time.Duration
		want bool
	}{
		{"fresh", created.Add(30 * time.Minute), time.Hour, false},
		{"exactly at ttl", created.Add(time.Hour), time.Hour, true},
		{"past ttl", created.Add(2 * time.Hour), time.Hour, true},
		{"zero ttl", created, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Expired(tt.ttl, tt.now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
