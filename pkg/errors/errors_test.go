package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppErrorMessageIncludesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewFetchError("网络请求错误", 0, nil).WithCause(cause)

	if got := err.Error(); got != "网络请求错误: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
}

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("refresh: %w", NewFetchError("获取B站热门视频失败: 未知错误", 502, nil))

	var fetchErr *FetchError
	if !stderrors.As(wrapped, &fetchErr) {
		t.Fatalf("expected FetchError in %v", wrapped)
	}
	if fetchErr.Code != CodeFetch || fetchErr.StatusCode != 502 {
		t.Fatalf("unexpected fields: %+v", fetchErr.AppError)
	}
}

func TestConstructorsSetCodeAndContext(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		code    string
		status  int
		ctxKey  string
		ctxWant any
	}{
		{"precondition", NewPreconditionError("raw items must not be nil", "raw").AppError, CodePrecondition, 400, "argument", "raw"},
		{"validation", NewValidationError("invalid theme", "theme", "neon").AppError, CodeValidation, 400, "field", "theme"},
		{"ai", NewAIRequestError("AI分析失败", "openai", 401, nil).AppError, CodeAIRequest, 401, "provider", "openai"},
		{"cache", NewCacheError("get failed", "get", "k", nil).AppError, CodeCache, 500, "key", "k"},
		{"service", NewServiceError("down", "postgres", "ping", nil).AppError, CodeService, 500, "service", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", tt.err.StatusCode, tt.status)
			}
			if got := tt.err.Context[tt.ctxKey]; got != tt.ctxWant {
				t.Errorf("context[%s] = %v, want %v", tt.ctxKey, got, tt.ctxWant)
			}
		})
	}
}

func TestAIRequestErrorWithoutCause(t *testing.T) {
	err := NewAIRequestError("AI分析失败: 无法获取分析结果", "gemini", 0, nil)
	if err.Error() != "AI分析失败: 无法获取分析结果" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Fatal("expected nil cause")
	}
}
