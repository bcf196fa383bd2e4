package mdtest

import (
	"testing"

	"github.com/wonny/finscore/internal/fetchcache"
	"github.com/wonny/finscore/pkg/logger"
)

// NewCache returns a fetch cache over an in-memory badger store that is
// closed when the test ends
func NewCache(tb testing.TB) *fetchcache.Cache {
	tb.Helper()

	store, err := fetchcache.OpenBadger("")
	if err != nil {
		tb.Fatalf("open in-memory badger: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	return fetchcache.New(store, logger.Nop(), nil)
}
