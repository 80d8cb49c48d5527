// Package ai requests trend summaries from user-configured AI endpoints.
package ai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/util"
	apperrors "github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

const (
	geminiHost     = "generativelanguage.googleapis.com"
	chatCompletion = "/chat/completions"
)

type RouterConfig struct {
	OpenAIModel string
	GeminiModel string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Router picks a provider per request from the endpoint URL. Endpoint and key
// come from the user config, so providers are built on every call. Each
// endpoint host gets its own circuit breaker.
type Router struct {
	cfg    RouterConfig
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*util.CircuitBreaker
}

func NewRouter(cfg RouterConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = constants.AIModels.DefaultOpenAI
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = constants.AIModels.DefaultGemini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.APIConfig.AIRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Router{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*util.CircuitBreaker),
	}
}

func (r *Router) breakerFor(host string) *util.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[host]
	if !ok {
		cb = util.NewCircuitBreaker("ai:"+host,
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			r.logger,
		)
		r.breakers[host] = cb
	}
	return cb
}

// isOutage reports whether err says the endpoint is down rather than that the
// request was rejected. Only outages count against the breaker.
func isOutage(err error) bool {
	var aiErr *apperrors.AIRequestError
	if !errors.As(err, &aiErr) {
		return true
	}
	return aiErr.StatusCode == 0 || aiErr.StatusCode >= http.StatusInternalServerError
}

// RequestSummary sends prompt to endpointURL. Every failure is an *AIRequestError.
func (r *Router) RequestSummary(ctx context.Context, prompt, endpointURL, apiKey string) (string, error) {
	endpoint, err := parseEndpoint(endpointURL)
	if err != nil {
		return "", err
	}

	breaker := r.breakerFor(strings.ToLower(endpoint.Host))
	if !breaker.CanExecute() {
		status := breaker.GetStatus()
		r.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("host", endpoint.Host),
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
		)
		return "", apperrors.NewAIRequestError("AI服务暂时不可用，请稍后重试", "router", http.StatusServiceUnavailable, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	provider, err := r.providerFor(ctx, endpoint, apiKey)
	if err != nil {
		return "", err
	}

	text, err := provider.Generate(ctx, prompt)
	if err != nil {
		if isOutage(err) {
			breaker.RecordFailure()
		}
		r.logger.Warn("AI summary request failed", zap.String("provider", provider.Name()), zap.Error(err))
		return "", err
	}

	breaker.RecordSuccess()
	return text, nil
}

func parseEndpoint(endpointURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(endpointURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, apperrors.NewAIRequestError("AI分析失败: 无效的API地址", "router", 0, err)
	}
	return parsed, nil
}

func (r *Router) providerFor(ctx context.Context, parsed *url.URL, apiKey string) (Provider, error) {
	if IsGeminiEndpoint(parsed) {
		return NewGeminiProvider(ctx, apiKey, r.cfg.GeminiModel, r.cfg.HTTPClient, r.logger)
	}
	return NewOpenAIProvider(OpenAIBaseURL(parsed), apiKey, r.cfg.OpenAIModel, r.cfg.HTTPClient, r.logger), nil
}

// IsGeminiEndpoint reports whether u points at the native Gemini API.
func IsGeminiEndpoint(u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), geminiHost)
}

// OpenAIBaseURL strips the chat-completions suffix so the SDK can append it.
func OpenAIBaseURL(u *url.URL) string {
	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	base.Path = strings.TrimSuffix(strings.TrimRight(base.Path, "/"), chatCompletion)
	return strings.TrimRight(base.String(), "/") + "/"
}
