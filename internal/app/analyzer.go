package app

import (
	"context"
	"sync"
	"time"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// VideoSource fetches the popular list.
type VideoSource interface {
	FetchPopularVideos(ctx context.Context, limit int) ([]domain.RawItem, error)
}

// Runner turns raw items into a result.
type Runner interface {
	Run(ctx context.Context, raw []domain.RawItem, cfg domain.UserConfig) (*domain.AnalysisResult, error)
}

// ConfigLoader reads the current user configuration.
type ConfigLoader interface {
	Load(ctx context.Context) (domain.UserConfig, error)
}

// RefreshObserver is told about every finished refresh.
type RefreshObserver interface {
	ObserveRefresh(elapsed time.Duration, videos int, err error)
}

// ResultListener receives every new result. Listener errors are logged and
// never fail the refresh.
type ResultListener func(ctx context.Context, result *domain.AnalysisResult) error

type namedListener struct {
	name string
	fn   ResultListener
}

// Status describes the analyzer without exposing the result itself.
type Status struct {
	HasResult     bool      `json:"has_result"`
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
}

// Analyzer owns the latest result. Refreshes are serialized; readers never
// block on a running refresh.
type Analyzer struct {
	source   VideoSource
	runner   Runner
	config   ConfigLoader
	observer RefreshObserver
	logger   *zap.Logger
	now      func() time.Time

	refreshMu sync.Mutex
	listeners []namedListener
	onFailure []func(err error)

	mu            sync.RWMutex
	latest        *domain.AnalysisResult
	lastErr       error
	lastAttemptAt time.Time
	lastSuccessAt time.Time
}

func NewAnalyzer(source VideoSource, runner Runner, config ConfigLoader, observer RefreshObserver, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		source:   source,
		runner:   runner,
		config:   config,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers fn for every later result. Call before the first Refresh.
func (a *Analyzer) Subscribe(name string, fn ResultListener) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	a.listeners = append(a.listeners, namedListener{name: name, fn: fn})
}

// OnFailure registers fn for every failed refresh.
func (a *Analyzer) OnFailure(fn func(err error)) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	a.onFailure = append(a.onFailure, fn)
}

// Seed installs a previously stored result without notifying listeners.
func (a *Analyzer) Seed(result *domain.AnalysisResult) {
	if result == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		a.latest = result
		a.lastSuccessAt = result.GeneratedAt
	}
}

// Refresh fetches, analyzes and publishes one result. On failure the previous
// result stays in place and the error is recorded.
func (a *Analyzer) Refresh(ctx context.Context) (*domain.AnalysisResult, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	started := a.now()
	result, err := a.refresh(ctx)
	elapsed := a.now().Sub(started)

	videos := 0
	if result != nil {
		videos = len(result.VideoDetails)
	}
	if a.observer != nil {
		a.observer.ObserveRefresh(elapsed, videos, err)
	}

	a.mu.Lock()
	a.lastAttemptAt = started
	a.lastErr = err
	if err == nil {
		a.latest = result
		a.lastSuccessAt = a.now()
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("Refresh failed, keeping previous result", zap.Error(err), zap.Duration("elapsed", elapsed))
		for _, fn := range a.onFailure {
			fn(err)
		}
		return nil, err
	}

	a.logger.Info("Refresh completed", zap.Int("videos", videos), zap.Duration("elapsed", elapsed))
	a.publish(ctx, result)
	return result, nil
}

func (a *Analyzer) refresh(ctx context.Context) (*domain.AnalysisResult, error) {
	cfg, err := a.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := a.source.FetchPopularVideos(ctx, cfg.VideoLimit)
	if err != nil {
		return nil, err
	}

	return a.runner.Run(ctx, raw, cfg)
}

func (a *Analyzer) publish(ctx context.Context, result *domain.AnalysisResult) {
	if len(a.listeners) == 0 {
		return
	}

	p := pool.New().WithContext(ctx)
	for _, l := range a.listeners {
		p.Go(func(ctx context.Context) error {
			if err := l.fn(ctx, result); err != nil {
				a.logger.Warn("Result listener failed", zap.String("listener", l.name), zap.Error(err))
			}
			return nil
		})
	}
	_ = p.Wait()
}

// Latest returns the last successful result and the error of the most
// recent attempt, nil when that attempt succeeded.
func (a *Analyzer) Latest() (*domain.AnalysisResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.lastErr
}

func (a *Analyzer) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := Status{
		HasResult:     a.latest != nil,
		LastAttemptAt: a.lastAttemptAt,
		LastSuccessAt: a.lastSuccessAt,
	}
	if a.lastErr != nil {
		status.LastError = a.lastErr.Error()
	}
	return status
}
