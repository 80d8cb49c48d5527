// Package bilibili fetches the popular-video list from the Bilibili web API.
package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/util"
	"github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

const popularPath = "/x/web-interface/popular"

// PopularCache is the optional response cache, satisfied by cache.CacheService.
type PopularCache interface {
	GetPopularVideos(ctx context.Context, limit int) ([]domain.RawItem, bool)
	SetPopularVideos(ctx context.Context, limit int, items []domain.RawItem)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	cache      PopularCache
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithCache(cache PopularCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  constants.APIConfig.BilibiliUserAgent,
		breaker: util.NewCircuitBreaker("bilibili",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		),
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// popularResponse mirrors the parts of the upstream envelope we read.
type popularResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List []popularItem `json:"list"`
	} `json:"data"`
}

type popularItem struct {
	BVID  string `json:"bvid"`
	Title string `json:"title"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
	Stat struct {
		View     int64 `json:"view"`
		Danmaku  int64 `json:"danmaku"`
		Reply    int64 `json:"reply"`
		Favorite int64 `json:"favorite"`
		Coin     int64 `json:"coin"`
		Share    int64 `json:"share"`
		Like     int64 `json:"like"`
	} `json:"stat"`
	PubDate int64  `json:"pubdate"`
	Pic     string `json:"pic"`
}

func (p popularItem) toRaw() domain.RawItem {
	return domain.RawItem{
		BVID:     p.BVID,
		Title:    p.Title,
		Author:   p.Owner.Name,
		View:     p.Stat.View,
		Danmaku:  p.Stat.Danmaku,
		Reply:    p.Stat.Reply,
		Favorite: p.Stat.Favorite,
		Coin:     p.Stat.Coin,
		Share:    p.Stat.Share,
		Like:     p.Stat.Like,
		PubDate:  p.PubDate,
		Pic:      p.Pic,
	}
}

// FetchPopularVideos returns the first page of the popular list. limit <= 0
// falls back to the default page size.
func (c *Client) FetchPopularVideos(ctx context.Context, limit int) ([]domain.RawItem, error) {
	if limit <= 0 {
		limit = constants.AnalysisConfig.DefaultLimit
	}

	if c.cache != nil {
		if items, ok := c.cache.GetPopularVideos(ctx, limit); ok {
			c.logger.Debug("Popular videos served from cache", zap.Int("limit", limit))
			return items, nil
		}
	}

	if !c.breaker.CanExecute() {
		retryAfter := c.breaker.RetryAfter()
		c.logger.Warn("Circuit breaker is open", zap.Duration("retry_after", retryAfter))
		return nil, errors.NewFetchError("获取B站热门视频失败: 熔断器开启", http.StatusServiceUnavailable, map[string]any{
			"retry_after_ms": retryAfter.Milliseconds(),
		})
	}

	params := url.Values{}
	params.Set("ps", strconv.Itoa(limit))
	params.Set("pn", "1")
	reqURL := c.baseURL + popularPath + "?" + params.Encode()

	var lastErr error
	maxAttempts := constants.RetryConfig.MaxAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, status, err := c.doGet(ctx, reqURL)

		retryable := false
		switch {
		case err != nil:
			lastErr = errors.NewFetchError("网络请求错误", 0, map[string]any{"url": reqURL}).WithCause(err)
			retryable = ctx.Err() == nil
		case status >= http.StatusInternalServerError:
			lastErr = errors.NewFetchError(fmt.Sprintf("获取B站热门视频失败: HTTP %d", status), status, map[string]any{"url": reqURL})
			retryable = true
		default:
			items, err := c.decode(body, status)
			if err != nil {
				// upstream answered; a retry will not change its mind
				c.breaker.RecordSuccess()
				return nil, err
			}
			c.breaker.RecordSuccess()
			if c.cache != nil {
				c.cache.SetPopularVideos(ctx, limit, items)
			}
			c.logger.Info("Popular videos fetched", zap.Int("count", len(items)), zap.Int("attempt", attempt+1))
			return items, nil
		}

		c.breaker.RecordFailure()
		if !retryable || !c.breaker.CanExecute() || attempt == maxAttempts-1 {
			break
		}

		delay := computeDelay(attempt)
		c.logger.Warn("Popular list request failed, retrying",
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, errors.NewFetchError("网络请求错误", 0, map[string]any{"url": reqURL}).WithCause(err)
		}
	}

	c.logger.Error("Popular list request failed", zap.Error(lastErr))
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", constants.APIConfig.BilibiliReferer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) decode(body []byte, status int) ([]domain.RawItem, error) {
	var envelope popularResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		if status != http.StatusOK {
			return nil, fetchFailure("", status)
		}
		return nil, fetchFailure("", status).WithCause(err)
	}

	if status != http.StatusOK || envelope.Code != 0 {
		return nil, fetchFailure(envelope.Message, status)
	}

	items := make([]domain.RawItem, len(envelope.Data.List))
	for i, item := range envelope.Data.List {
		items[i] = item.toRaw()
	}
	return items, nil
}

func fetchFailure(upstreamMessage string, status int) *errors.FetchError {
	if upstreamMessage == "" {
		upstreamMessage = "未知错误"
	}
	return errors.NewFetchError("获取B站热门视频失败: "+upstreamMessage, status, nil)
}

// IsCircuitOpen reports whether requests are currently short-circuited.
func (c *Client) IsCircuitOpen() bool {
	return !c.breaker.CanExecute()
}

func computeDelay(attempt int) time.Duration {
	base := constants.RetryConfig.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * float64(constants.RetryConfig.Jitter))
	return base + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
