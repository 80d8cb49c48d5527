package app

import (
	"context"
	"fmt"
	"time"

	"github.com/atri1011/datafx/internal/analysis"
	"github.com/atri1011/datafx/internal/config"
	"github.com/atri1011/datafx/internal/configstore"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/history"
	"github.com/atri1011/datafx/internal/metrics"
	"github.com/atri1011/datafx/internal/render"
	"github.com/atri1011/datafx/internal/scheduler"
	"github.com/atri1011/datafx/internal/service/ai"
	"github.com/atri1011/datafx/internal/service/bilibili"
	"github.com/atri1011/datafx/internal/service/cache"
	"github.com/atri1011/datafx/internal/service/database"
	"github.com/atri1011/datafx/internal/stream"
	"go.uber.org/zap"
)

const refreshJobTimeout = 5 * time.Minute

// Container bundles the assembled services.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Analyzer  *Analyzer
	Charts    *render.ChartContext
	Hub       *stream.Hub
	Store     configstore.Store
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	History   *history.Repository // nil unless POSTGRES_ENABLED

	closers []func()
}

// Build assembles all services. Redis and PostgreSQL are optional; when
// enabled they must be reachable.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	m := metrics.New()

	// Cache and database
	var cacheSvc *cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", err)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
	}

	var historyRepo *history.Repository
	if cfg.Postgres.Enabled {
		postgresSvc, pgErr := database.NewPostgresService(ctx, database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if pgErr != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", pgErr)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})

		historyRepo = history.NewRepository(postgresSvc, logger)
		if err = historyRepo.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	// User config
	var store configstore.Store
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		store = configstore.NewRedisStore(cacheSvc, cfg.Store.Key, logger)
	default:
		store = configstore.NewFileStore(cfg.Store.FilePath, logger)
	}

	// Fetch and analysis
	clientOpts := []bilibili.Option{bilibili.WithUserAgent(cfg.Bilibili.UserAgent)}
	if cacheSvc != nil {
		clientOpts = append(clientOpts, bilibili.WithCache(cacheSvc))
	}
	source := bilibili.NewClient(cfg.Bilibili.BaseURL, cfg.Bilibili.Timeout, logger, clientOpts...)

	router := ai.NewRouter(ai.RouterConfig{
		OpenAIModel: cfg.AI.OpenAIModel,
		GeminiModel: cfg.AI.GeminiModel,
		Timeout:     cfg.AI.Timeout,
	}, logger)

	pipeline := analysis.NewPipeline(router, logger, analysis.WithSummaryObserver(m.ObserveSummary))
	analyzer := NewAnalyzer(source, pipeline, store, m, logger)

	// Publication
	charts := render.NewChartContext(logger)
	hub := stream.NewHub(logger)

	analyzer.Subscribe("charts", func(_ context.Context, result *domain.AnalysisResult) error {
		charts.Update(result)
		return nil
	})
	analyzer.Subscribe("websocket", func(_ context.Context, result *domain.AnalysisResult) error {
		return hub.Publish(stream.Event{Type: stream.EventAnalysis, Data: result, Timestamp: result.GeneratedAt})
	})
	analyzer.OnFailure(func(err error) {
		_ = hub.Publish(stream.Event{Type: stream.EventRefreshError, Error: err.Error()})
	})
	if cacheSvc != nil {
		analyzer.Subscribe("cache", func(ctx context.Context, result *domain.AnalysisResult) error {
			return cacheSvc.SaveLatestResult(ctx, result)
		})

		if previous, loadErr := cacheSvc.LoadLatestResult(ctx); loadErr != nil {
			logger.Warn("Failed to restore cached result", zap.Error(loadErr))
		} else if previous != nil {
			analyzer.Seed(previous)
			charts.Update(previous)
			_ = hub.Publish(stream.Event{Type: stream.EventAnalysis, Data: previous, Timestamp: previous.GeneratedAt})
			logger.Info("Restored cached result", zap.Time("generated_at", previous.GeneratedAt))
		}
	}
	if historyRepo != nil {
		analyzer.Subscribe("history", func(ctx context.Context, result *domain.AnalysisResult) error {
			_, err := historyRepo.Save(ctx, result)
			return err
		})
	}

	sched := scheduler.New(func(ctx context.Context) error {
		_, err := analyzer.Refresh(ctx)
		return err
	}, refreshJobTimeout, logger)

	userCfg, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err = sched.Reschedule(userCfg.RefreshIntervalMinutes); err != nil {
		return nil, err
	}

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Analyzer:  analyzer,
		Charts:    charts,
		Hub:       hub,
		Store:     store,
		Scheduler: sched,
		Metrics:   m,
		History:   historyRepo,
		closers:   closers,
	}, nil
}

// LoadUserConfig reads the stored user configuration.
func (c *Container) LoadUserConfig(ctx context.Context) (domain.UserConfig, error) {
	return c.Store.Load(ctx)
}

// UpdateUserConfig persists patch and applies the new refresh interval.
func (c *Container) UpdateUserConfig(ctx context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error) {
	saved, err := c.Store.Save(ctx, patch)
	if err != nil {
		return domain.UserConfig{}, err
	}
	if err := c.Scheduler.Reschedule(saved.RefreshIntervalMinutes); err != nil {
		return saved, err
	}
	return saved, nil
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
