package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/prompt"
	"github.com/atri1011/datafx/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	// SummaryDisabledMessage is the ai_summary value when credentials are missing.
	SummaryDisabledMessage = "AI分析功能未开启或配置错误。"
	summaryFailedFormat    = "AI分析请求失败: %s"
)

// Summary outcomes passed to the SummaryObserver.
const (
	SummaryOutcomeDisabled = "disabled"
	SummaryOutcomeSuccess  = "success"
	SummaryOutcomeFailure  = "failure"
)

// SummaryClient requests a natural-language summary from an AI endpoint.
type SummaryClient interface {
	RequestSummary(ctx context.Context, prompt, endpointURL, apiKey string) (string, error)
}

// SummaryObserver is told how the AI step ended on every run.
type SummaryObserver func(outcome string)

type Pipeline struct {
	summarizer SummaryClient
	logger     *zap.Logger
	now        func() time.Time
	observer   SummaryObserver
}

type PipelineOption func(*Pipeline)

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

func WithSummaryObserver(observer SummaryObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

func NewPipeline(summarizer SummaryClient, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		summarizer: summarizer,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyzes one fetched batch. A nil raw slice is a precondition failure;
// an empty one is analyzed normally. AI failures are folded into AISummary
// and never returned.
func (p *Pipeline) Run(ctx context.Context, raw []domain.RawItem, cfg domain.UserConfig) (*domain.AnalysisResult, error) {
	if raw == nil {
		return nil, errors.NewPreconditionError("raw items must not be nil", "raw")
	}

	p.logger.Info("Analysis started", zap.Int("videos", len(raw)))
	started := p.now()

	details := DeriveAll(raw)

	var (
		stats       map[string]domain.FieldStatistics
		authors     []domain.AuthorAggregate
		words       []domain.WordFrequencyEntry
		correlation domain.CorrelationMatrix
	)

	// the four reductions only read details
	var wg conc.WaitGroup
	wg.Go(func() { stats = Summarize(details, SummaryFields) })
	wg.Go(func() { authors = AggregateBy(details, domain.FieldAuthor) })
	wg.Go(func() { words = TopWords(details, domain.FieldTitle, constants.AnalysisConfig.TopWordsLimit) })
	wg.Go(func() { correlation = Correlate(details, SummaryFields) })
	wg.Wait()

	outliers := FindOutliers(details, stats, OutlierFields, constants.AnalysisConfig.OutlierZScore)

	result := &domain.AnalysisResult{
		VideoDetails:      details,
		DescriptiveStats:  stats,
		AuthorAggregate:   authors,
		WordCloudData:     words,
		OutlierVideos:     outliers,
		CorrelationMatrix: correlation,
		AISummary:         p.summarize(ctx, details, cfg),
		GeneratedAt:       p.now(),
	}

	p.logger.Info("Analysis finished",
		zap.Int("videos", len(details)),
		zap.Int("authors", len(authors)),
		zap.Int("words", len(words)),
		zap.Int("outliers", len(outliers)),
		zap.Duration("elapsed", p.now().Sub(started)),
	)

	return result, nil
}

func (p *Pipeline) summarize(ctx context.Context, details []domain.DerivedItem, cfg domain.UserConfig) string {
	if !cfg.AIEnabled() {
		p.observe(SummaryOutcomeDisabled)
		return SummaryDisabledMessage
	}

	summary, err := p.requestSummary(ctx, details, cfg)
	if err != nil {
		p.logger.Error("AI summary failed", zap.Error(err))
		p.observe(SummaryOutcomeFailure)
		return fmt.Sprintf(summaryFailedFormat, err.Error())
	}

	p.observe(SummaryOutcomeSuccess)
	return summary
}

func (p *Pipeline) requestSummary(ctx context.Context, details []domain.DerivedItem, cfg domain.UserConfig) (string, error) {
	if p.summarizer == nil {
		return "", errors.NewAIRequestError("AI client not configured", "none", 0, nil)
	}

	titles := make([]string, len(details))
	for i, d := range details {
		titles[i] = d.Title
	}

	text, err := prompt.BuildTrendSummaryPrompt(titles)
	if err != nil {
		return "", err
	}

	return p.summarizer.RequestSummary(ctx, text, cfg.AIAPIURL, cfg.AIAPIKey)
}

func (p *Pipeline) observe(outcome string) {
	if p.observer != nil {
		p.observer(outcome)
	}
}
