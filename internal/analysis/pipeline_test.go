package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atri1011/datafx/internal/domain"
	apperrors "github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

type fakeSummarizer struct {
	text  string
	err   error
	calls []fakeSummaryCall
}

type fakeSummaryCall struct {
	prompt   string
	endpoint string
	apiKey   string
}

func (f *fakeSummarizer) RequestSummary(_ context.Context, prompt, endpointURL, apiKey string) (string, error) {
	f.calls = append(f.calls, fakeSummaryCall{prompt: prompt, endpoint: endpointURL, apiKey: apiKey})
	return f.text, f.err
}

func fixture() []domain.RawItem {
	return []domain.RawItem{
		{BVID: "BV1", Title: "原神 新版本 PV", Author: "米哈游", View: 1000, Like: 100, Coin: 50, Favorite: 20},
		{BVID: "BV2", Title: "原神 角色 演示", Author: "米哈游", View: 800, Like: 60, Coin: 10, Favorite: 5},
		{BVID: "BV3", Title: "cooking vlog 美食", Author: "UP2", View: 0, Like: 3},
		{BVID: "BV4", Title: "科技 评测 phone", Author: "UP3", View: 5000, Like: 250, Coin: 40, Favorite: 80},
		{BVID: "BV5", Title: "美食 探店 vlog", Author: "UP2", View: 300, Like: 30, Coin: 3, Favorite: 7},
	}
}

func TestPipelineRunDisabledAI(t *testing.T) {
	summarizer := &fakeSummarizer{text: "should not be used"}
	p := NewPipeline(summarizer, zap.NewNop())

	cfg := domain.DefaultUserConfig()
	cfg.AIAPIKey = ""

	result, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AISummary != SummaryDisabledMessage {
		t.Fatalf("ai summary = %q", result.AISummary)
	}
	if len(result.VideoDetails) != 5 {
		t.Fatalf("video details = %d, want 5", len(result.VideoDetails))
	}
	if len(summarizer.calls) != 0 {
		t.Fatalf("summarizer called %d times", len(summarizer.calls))
	}
	if result.AuthorAggregate[0].Author != "米哈游" {
		t.Fatalf("top author = %s", result.AuthorAggregate[0].Author)
	}
	if result.WordCloudData[0].Token != "原神" || result.WordCloudData[0].Count != 2 {
		t.Fatalf("top word = %+v", result.WordCloudData[0])
	}
	for _, field := range SummaryFields {
		if _, ok := result.DescriptiveStats[field]; !ok {
			t.Fatalf("missing statistics for %s", field)
		}
	}
}

func TestPipelineRunIsDeterministicWhenDisabled(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	p := NewPipeline(nil, zap.NewNop(), WithClock(func() time.Time { return fixed }))
	cfg := domain.UserConfig{AIAPIURL: "https://example.com"}

	first, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if first.AISummary != second.AISummary || first.AISummary != SummaryDisabledMessage {
		t.Fatalf("summaries differ: %q vs %q", first.AISummary, second.AISummary)
	}
	if !first.GeneratedAt.Equal(fixed) {
		t.Fatalf("generated_at = %v", first.GeneratedAt)
	}
}

func TestPipelineRunRequestsSummary(t *testing.T) {
	summarizer := &fakeSummarizer{text: "趋势总结"}
	var outcomes []string
	p := NewPipeline(summarizer, zap.NewNop(), WithSummaryObserver(func(o string) { outcomes = append(outcomes, o) }))

	cfg := domain.DefaultUserConfig()
	cfg.AIAPIKey = "sk-test"

	result, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AISummary != "趋势总结" {
		t.Fatalf("ai summary = %q", result.AISummary)
	}
	if len(summarizer.calls) != 1 {
		t.Fatalf("calls = %d", len(summarizer.calls))
	}
	call := summarizer.calls[0]
	if call.apiKey != "sk-test" || call.endpoint != cfg.AIAPIURL {
		t.Fatalf("credentials not forwarded: %+v", call)
	}
	if !strings.Contains(call.prompt, "原神 新版本 PV, 原神 角色 演示, cooking vlog 美食") {
		t.Fatalf("titles not comma-joined in prompt: %q", call.prompt)
	}
	if len(outcomes) != 1 || outcomes[0] != SummaryOutcomeSuccess {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

func TestPipelineRunAbsorbsAIFailure(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("status 500")}
	p := NewPipeline(summarizer, zap.NewNop())

	cfg := domain.DefaultUserConfig()
	cfg.AIAPIKey = "sk-test"

	result, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatalf("AI failure must not propagate: %v", err)
	}
	if result.AISummary != "AI分析请求失败: status 500" {
		t.Fatalf("ai summary = %q", result.AISummary)
	}
	if len(result.VideoDetails) != 5 {
		t.Fatal("analysis incomplete after AI failure")
	}
}

func TestPipelineRunWithoutClientButCredentials(t *testing.T) {
	p := NewPipeline(nil, zap.NewNop())
	cfg := domain.DefaultUserConfig()
	cfg.AIAPIKey = "sk-test"

	result, err := p.Run(context.Background(), fixture(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.AISummary, "AI分析请求失败: ") {
		t.Fatalf("ai summary = %q", result.AISummary)
	}
}

func TestPipelineRunEmptyInput(t *testing.T) {
	p := NewPipeline(nil, zap.NewNop())

	result, err := p.Run(context.Background(), []domain.RawItem{}, domain.UserConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.VideoDetails) != 0 || len(result.AuthorAggregate) != 0 || len(result.WordCloudData) != 0 {
		t.Fatalf("expected empty collections: %+v", result)
	}
	if result.DescriptiveStats["view"] != (domain.FieldStatistics{}) {
		t.Fatalf("expected zero statistics: %+v", result.DescriptiveStats["view"])
	}
}

func TestPipelineRunNilInput(t *testing.T) {
	p := NewPipeline(nil, zap.NewNop())

	result, err := p.Run(context.Background(), nil, domain.UserConfig{})
	if result != nil {
		t.Fatal("expected no result")
	}

	var precondition *apperrors.PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected PreconditionError, got %T %v", err, err)
	}
}
