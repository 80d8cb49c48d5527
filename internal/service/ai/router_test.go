package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	apperrors "github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4.1",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": " 游戏与美食内容占据榜单。 "}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestRequestSummaryOpenAICompatible(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	text, err := router.RequestSummary(context.Background(), "prompt", srv.URL+"/v1/chat/completions", "sk-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "游戏与美食内容占据榜单。" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestRequestSummaryHTTPFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down", "type": "server_error"}}`))
	}))
	defer srv.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	_, err := router.RequestSummary(context.Background(), "prompt", srv.URL+"/v1/chat/completions", "sk-test")

	var aiErr *apperrors.AIRequestError
	if !errors.As(err, &aiErr) {
		t.Fatalf("expected AIRequestError, got %T %v", err, err)
	}
	if aiErr.StatusCode != http.StatusInternalServerError || aiErr.Provider != "OpenAI" {
		t.Errorf("status = %d, provider = %s", aiErr.StatusCode, aiErr.Provider)
	}
	if calls.Load() != 1 {
		t.Errorf("SDK retries must be disabled, calls = %d", calls.Load())
	}
}

func TestRequestSummaryEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "gpt-4.1", "choices": []}`))
	}))
	defer srv.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	_, err := router.RequestSummary(context.Background(), "prompt", srv.URL+"/v1/chat/completions", "sk-test")

	var aiErr *apperrors.AIRequestError
	if !errors.As(err, &aiErr) || aiErr.Message != "AI分析失败: 无法获取分析结果" {
		t.Fatalf("expected empty-result AIRequestError, got %v", err)
	}
}

func TestRequestSummaryInvalidEndpoint(t *testing.T) {
	router := NewRouter(RouterConfig{}, zap.NewNop())

	_, err := router.RequestSummary(context.Background(), "prompt", "not a url", "sk-test")

	var aiErr *apperrors.AIRequestError
	if !errors.As(err, &aiErr) {
		t.Fatalf("expected AIRequestError, got %v", err)
	}
}

func TestRequestSummaryCircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	for range 4 {
		_, _ = router.RequestSummary(context.Background(), "prompt", srv.URL+"/v1/chat/completions", "sk-test")
	}

	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3 before the circuit opens", calls.Load())
	}
}

func TestRequestSummaryRejectedKeyDoesNotOpenCircuit(t *testing.T) {
	var rejected atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			rejected.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	endpoint := srv.URL + "/v1/chat/completions"

	for range 4 {
		_, err := router.RequestSummary(context.Background(), "prompt", endpoint, "sk-bad")
		var aiErr *apperrors.AIRequestError
		if !errors.As(err, &aiErr) || aiErr.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 AIRequestError, got %v", err)
		}
	}
	if rejected.Load() != 4 {
		t.Fatalf("rejected calls = %d, want 4 (circuit must stay closed)", rejected.Load())
	}

	text, err := router.RequestSummary(context.Background(), "prompt", endpoint, "sk-good")
	if err != nil {
		t.Fatalf("fixed key still failing: %v", err)
	}
	if text != "游戏与美食内容占据榜单。" {
		t.Errorf("text = %q", text)
	}
}

func TestRequestSummaryCircuitIsPerHost(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer healthy.Close()

	router := NewRouter(RouterConfig{}, zap.NewNop())
	for range 4 {
		_, _ = router.RequestSummary(context.Background(), "prompt", down.URL+"/v1/chat/completions", "sk-test")
	}

	_, err := router.RequestSummary(context.Background(), "prompt", down.URL+"/v1/chat/completions", "sk-test")
	var aiErr *apperrors.AIRequestError
	if !errors.As(err, &aiErr) || aiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected open circuit for failing host, got %v", err)
	}

	if _, err := router.RequestSummary(context.Background(), "prompt", healthy.URL+"/v1/chat/completions", "sk-test"); err != nil {
		t.Fatalf("healthy host blocked by another host's circuit: %v", err)
	}
}

func TestIsOutage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", apperrors.NewAIRequestError("AI分析服务网络请求错误", "OpenAI", 0, errors.New("dial tcp")), true},
		{"server error", apperrors.NewAIRequestError("AI分析失败", "OpenAI", 503, nil), true},
		{"unauthorized", apperrors.NewAIRequestError("AI分析失败", "OpenAI", 401, nil), false},
		{"rate limited", apperrors.NewAIRequestError("AI分析失败", "Gemini", 429, nil), false},
		{"untyped", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOutage(tt.err); got != tt.want {
				t.Errorf("isOutage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeminiStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", genai.APIError{Code: 403, Status: "403 Forbidden"})
	if got := geminiStatusCode(wrapped); got != 403 {
		t.Errorf("status = %d, want 403", got)
	}
	if got := geminiStatusCode(errors.New("connection reset")); got != 0 {
		t.Errorf("transport status = %d, want 0", got)
	}
}

func TestOpenAIBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://api.newapi.com/v1/chat/completions":  "https://api.newapi.com/v1/",
		"https://api.newapi.com/v1/chat/completions/": "https://api.newapi.com/v1/",
		"https://proxy.example.com/openai/v1":         "https://proxy.example.com/openai/v1/",
		"http://localhost:8000/chat/completions?x=1":  "http://localhost:8000/",
	}
	for in, want := range cases {
		u, err := url.Parse(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := OpenAIBaseURL(u); got != want {
			t.Errorf("OpenAIBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsGeminiEndpoint(t *testing.T) {
	gemini, _ := url.Parse("https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent")
	other, _ := url.Parse("https://api.openai.com/v1/chat/completions")

	if !IsGeminiEndpoint(gemini) {
		t.Error("gemini host not detected")
	}
	if IsGeminiEndpoint(other) {
		t.Error("openai host misdetected")
	}
}

func TestExtractTextFromGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "热门"}, {Text: "趋势"}}}},
		},
	}
	if got := extractTextFromGeminiResponse(resp); got != "热门趋势" {
		t.Errorf("got %q", got)
	}
	if got := extractTextFromGeminiResponse(nil); got != "" {
		t.Errorf("nil response gave %q", got)
	}
}
