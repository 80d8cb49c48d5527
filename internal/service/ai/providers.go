package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"

	apperrors "github.com/atri1011/datafx/pkg/errors"
)

// Provider generates plain text for a single prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider builds a client for baseURL, the endpoint without its
// trailing /chat/completions.
func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client, logger *zap.Logger) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		model:  model,
		logger: logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	o.logger.Debug("Generating with OpenAI-compatible endpoint", zap.String("model", o.model))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", apperrors.NewAIRequestError("AI分析失败", o.Name(), apiErr.StatusCode, err)
		}
		return "", apperrors.NewAIRequestError("AI分析服务网络请求错误", o.Name(), 0, err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.NewAIRequestError("AI分析失败: 无法获取分析结果", o.Name(), 0, nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperrors.NewAIRequestError("AI分析失败: 无法获取分析结果", o.Name(), 0, nil)
	}

	o.logger.Info("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return text, nil
}

// GeminiProvider uses the native Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, httpClient *http.Client, logger *zap.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, apperrors.NewAIRequestError("AI分析失败: 无法创建Gemini客户端", "Gemini", 0, err)
	}
	return &GeminiProvider{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug("Generating with Gemini", zap.String("model", g.model))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}, nil)
	if err != nil {
		return "", apperrors.NewAIRequestError("AI分析失败", g.Name(), geminiStatusCode(err), err)
	}

	text := strings.TrimSpace(extractTextFromGeminiResponse(resp))
	if text == "" {
		return "", apperrors.NewAIRequestError("AI分析失败: 无法获取分析结果", g.Name(), 0, nil)
	}

	g.logger.Info("Gemini response received", zap.Int("length", len(text)))
	return text, nil
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}

// geminiStatusCode is the HTTP status carried by a genai API error, 0 for
// transport failures.
func geminiStatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
