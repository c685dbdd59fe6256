// Package app wires a Config into stores, the history chain, the artifact
// resolver and the forecast engine. Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/cache"
	"demand-forecast/internal/config"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/forecast"
	"demand-forecast/internal/history"
	"demand-forecast/internal/storage"
	chstore "demand-forecast/internal/storage/clickhouse"
	"demand-forecast/internal/storage/memory"
	"demand-forecast/internal/storage/migrations"
	pgstore "demand-forecast/internal/storage/postgres"
)

// Options controls how Open connects.
type Options struct {
	// Migrate applies the embedded schema before the store is used.
	Migrate bool
	// Now anchors the lookback window. Defaults to time.Now.
	Now    func() time.Time
	Logger *log.Logger
}

// Service is a fully wired forecasting stack.
type Service struct {
	Config    *config.Config
	Store     storage.DemandStore
	StoreName string
	History   *history.Chain
	Resolver  *artifact.Resolver
	Engine    *forecast.Engine

	closers []func()
}

// Open connects the configured warehouse and cache and builds the engine.
// Nothing is resolved yet; the first Resolve or forecast does that.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{Config: cfg}

	store, closeStore, err := OpenStore(ctx, cfg.History, opts.Migrate)
	if err != nil {
		return nil, err
	}
	s.Store = store
	s.StoreName = cfg.History.Backend
	s.closers = append(s.closers, closeStore)

	s.History = NewHistoryChain(cfg, store, now(), logger)

	c, closeCache, err := OpenCache(ctx, cfg.Cache, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeCache)

	s.Resolver = artifact.NewResolver(artifact.ResolverOptions{
		TunedPath:      cfg.Paths.TunedArtifact,
		BasePath:       cfg.Paths.BaseArtifact,
		History:        s.History,
		Parse:          cfg.ParseOptions(),
		SmoothingAlpha: cfg.Forecast.SmoothingAlpha,
		Logger:         logger,
	})
	s.Engine = forecast.NewEngine(forecast.Options{
		Artifacts: s.Resolver,
		Cache:     c,
		Logger:    logger,
	})
	return s, nil
}

// Close releases connections in reverse order of acquisition.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStore connects the warehouse named by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.HistoryConfig, migrate bool) (storage.DemandStore, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewDemandStore(), func() {}, nil

	case config.BackendClickHouse:
		var (
			conn *chstore.Conn
			err  error
		)
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.DSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.DSN)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewDemandStore(conn), func() { conn.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return pgstore.NewDemandStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown history backend %q", config.ErrInvalidConfig, cfg.Backend)
}

// NewHistoryChain reads the warehouse first, then the offline snapshot.
func NewHistoryChain(cfg *config.Config, store storage.DemandStore, now time.Time, logger *log.Logger) *history.Chain {
	sources := []history.Source{
		history.FromStore(cfg.History.Backend, store, LookbackQuery(cfg.History.LookbackDays, now)),
	}
	if cfg.Paths.SnapshotDB != "" {
		sources = append(sources, history.FromSnapshot(cfg.Paths.SnapshotDB))
	}
	return history.NewChain(logger, sources...)
}

// LookbackQuery limits reads to the days calendar days ending at now.
// days <= 0 leaves the query unbounded.
func LookbackQuery(days int, now time.Time) domain.HistoryQuery {
	if days <= 0 {
		return domain.HistoryQuery{}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return domain.HistoryQuery{Start: today.AddDate(0, 0, -days)}
}

// OpenCache returns Redis when an address is configured, otherwise an
// in-process LRU. A zero size disables caching.
func OpenCache(ctx context.Context, cfg config.CacheConfig, logger *log.Logger) (cache.Cache, func(), error) {
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}
	if cfg.Size <= 0 {
		return cache.Noop{}, func() {}, nil
	}
	lru, err := cache.NewLRU(cfg.Size, cfg.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("create cache: %w", err)
	}
	return lru, func() {}, nil
}
