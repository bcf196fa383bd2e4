package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/finscore/pkg/logger"
)

// CacheSweepName is the scheduler name of the cache sweep job
const CacheSweepName = "cache_sweep"

// Sweeper physically removes expired cache entries
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// CacheSweepJob removes expired fetch cache entries
type CacheSweepJob struct {
	cache    Sweeper
	schedule string
	logger   *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(cache Sweeper, schedule string, log *logger.Logger) *CacheSweepJob {
	if schedule == "" {
		schedule = "0 */15 * * * *"
	}
	return &CacheSweepJob{
		cache:    cache,
		schedule: schedule,
		logger:   log.WithComponent("cache_sweep"),
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return CacheSweepName
}

// Schedule returns the cron schedule (with seconds)
func (j *CacheSweepJob) Schedule() string {
	return j.schedule
}

// Run executes the cache sweep
func (j *CacheSweepJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache sweep")

	removed, err := j.cache.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("cache sweep: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Cache sweep completed")
	}

	return nil
}
