package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/finscore/pkg/logger"
)

type fakeSweeper struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestCacheSweepJob(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	job := NewCacheSweepJob(sweeper, "", logger.Nop())

	assert.Equal(t, "cache_sweep", job.Name())
	assert.Equal(t, "0 */15 * * * *", job.Schedule())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)
}

func TestCacheSweepJob_Error(t *testing.T) {
	job := NewCacheSweepJob(&fakeSweeper{err: errors.New("db down")}, "@hourly", logger.Nop())

	assert.Equal(t, "@hourly", job.Schedule())
	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}
