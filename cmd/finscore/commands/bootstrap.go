package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/finscore/internal/analysis"
	"github.com/wonny/finscore/internal/api/handlers"
	"github.com/wonny/finscore/internal/auditlog"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/fetchcache"
	"github.com/wonny/finscore/internal/marketdata"
	"github.com/wonny/finscore/internal/peers"
	"github.com/wonny/finscore/internal/scheduler"
	"github.com/wonny/finscore/internal/scheduler/jobs"
	"github.com/wonny/finscore/internal/scoring"
	"github.com/wonny/finscore/internal/validator"
	"github.com/wonny/finscore/pkg/config"
	"github.com/wonny/finscore/pkg/database"
	"github.com/wonny/finscore/pkg/httputil"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
	"github.com/wonny/finscore/pkg/redis"
)

// app holds every wired component of the service
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Manager

	db    *database.DB // nil without DATABASE_URL
	redis *redis.Client

	upstream  *fmp.Client
	cache     *fetchcache.Cache
	market    *marketdata.Client
	validator *validator.Validator
	resolver  *peers.Resolver
	analysis  *analysis.Service
	audit     *auditlog.Recorder
	scheduler *scheduler.Scheduler

	closers []func() error
}

// loadConfig loads config and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp connects backing stores and wires the analysis pipeline
func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logger.New(cfg),
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	if err := a.connect(); err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = fetchcache.New(store, a.log, a.metrics)

	httpClient := httputil.New(cfg, a.log)
	if a.redis.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(a.redis), redis.FMPRateLimit)
	}
	a.upstream = fmp.NewClient(httpClient, cfg.FMP, a.log, a.metrics)

	a.market = marketdata.New(a.upstream, a.cache, a.log)
	a.validator = validator.New(a.market, a.log)
	a.resolver = peers.NewResolver(a.market, a.cache, peers.Config{
		Limit:         cfg.Analysis.PeerLimit,
		IndustryFirst: cfg.Analysis.IndustryFirst,
	}, a.log)

	sinks := []auditlog.Sink{auditlog.NewLoggerSink(a.log)}
	if a.db != nil {
		sinks = append(sinks, auditlog.NewPostgresSink(a.db.Pool))
	}
	a.audit = auditlog.NewRecorder(auditlog.Multi(sinks...), a.log)

	a.analysis = analysis.NewService(
		a.validator, a.market, a.resolver,
		scoring.NewEngine(a.log), a.audit, a.metrics, a.log,
		cfg.Analysis.PeerLimit,
	)

	a.scheduler = scheduler.New(a.log)
	if err := a.scheduler.AddJob(jobs.NewCacheSweepJob(a.cache, cfg.Cache.SweepSchedule, a.log)); err != nil {
		a.Close()
		return nil, fmt.Errorf("schedule cache sweep: %w", err)
	}

	return a, nil
}

// connect opens PostgreSQL (when configured) and Redis (when enabled)
func (a *app) connect() error {
	if a.cfg.Database.URL != "" {
		db, err := database.New(a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		a.log.Info("Connected to database")
	}

	rc, err := redis.New(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.closers = append(a.closers, rc.Close)
	if rc.Enabled() {
		a.log.Info("Connected to redis")
	}

	return nil
}

// openStore selects the document store behind the fetch cache
func (a *app) openStore() (fetchcache.Store, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendPostgres:
		if a.db == nil {
			return nil, errors.New("postgres cache backend requires DATABASE_URL")
		}
		return fetchcache.NewPostgresStore(a.db.Pool), nil

	case config.CacheBackendRedis:
		if !a.redis.Enabled() {
			return nil, errors.New("redis cache backend requires REDIS_ENABLED=true")
		}
		return fetchcache.NewRedisStore(a.redis), nil

	case config.CacheBackendBadger:
		store, err := fetchcache.OpenBadger(a.cfg.Cache.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}

	return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
}

// healthChecks reports on each dependency the service talks to
func (a *app) healthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{
		"upstream": func(context.Context) error {
			if state := a.upstream.BreakerState(); state == "open" {
				return fmt.Errorf("circuit breaker %s", state)
			}
			return nil
		},
	}
	if a.db != nil {
		checks["database"] = func(ctx context.Context) error {
			_, err := a.db.HealthCheck(ctx)
			return err
		}
	}
	if a.redis.Enabled() {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Redis().Ping(ctx).Err()
		}
	}
	if a.scheduler != nil {
		checks[jobs.CacheSweepName] = sweepCheck(a.scheduler)
	}
	return checks
}

// sweepCheck fails while the most recent cache sweep run failed
func sweepCheck(s *scheduler.Scheduler) handlers.CheckFunc {
	return func(context.Context) error {
		st, ok := s.GetJobStats()[jobs.CacheSweepName]
		if ok && st.LastFailure != nil {
			return fmt.Errorf("last sweep failed at %s", st.LastFailure.Format(time.RFC3339))
		}
		return nil
	}
}

// migrate applies the schema when PostgreSQL is configured
func (a *app) migrate(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	if err := a.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases connections in reverse order of opening
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("Failed to close resource")
		}
	}
	a.closers = nil
}
