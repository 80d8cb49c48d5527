package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return NewCacheServiceWithClient(client, logger), nil
}

// NewCacheServiceWithClient wraps an existing client without pinging it.
func NewCacheServiceWithClient(client *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		client: client,
		logger: logger,
	}
}

// Get decodes the JSON value at key into dest. found is false on a miss.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (found bool, err error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal(value, dest); err != nil {
			c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}

	return true, nil
}

// Set stores value as JSON. ttl <= 0 means no expiry.
func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

// GetRaw returns the stored string at key. found is false on a miss.
func (c *CacheService) GetRaw(ctx context.Context, key string) (value string, found bool, err error) {
	value, err = c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return "", false, errors.NewCacheError("get failed", "get", key, err)
	}
	return value, true, nil
}

// SetRaw stores value verbatim with no expiry.
func (c *CacheService) SetRaw(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

func (c *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("Cache exists failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("exists failed", "exists", key, err)
	}
	return count > 0, nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}

func popularKey(limit int) string {
	return constants.CacheKeys.PopularPrefix + strconv.Itoa(limit)
}

// GetPopularVideos returns a cached popular list for limit, if still fresh.
func (c *CacheService) GetPopularVideos(ctx context.Context, limit int) ([]domain.RawItem, bool) {
	var items []domain.RawItem
	found, err := c.Get(ctx, popularKey(limit), &items)
	if err != nil || !found || items == nil {
		c.logger.Debug("Popular list cache miss", zap.Int("limit", limit))
		return nil, false
	}
	return items, true
}

func (c *CacheService) SetPopularVideos(ctx context.Context, limit int, items []domain.RawItem) {
	if err := c.Set(ctx, popularKey(limit), items, constants.CacheTTL.PopularVideos); err != nil {
		c.logger.Warn("Failed to cache popular list", zap.Int("limit", limit), zap.Error(err))
	}
}

// LoadLatestResult restores the last published analysis, if any.
func (c *CacheService) LoadLatestResult(ctx context.Context) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	found, err := c.Get(ctx, constants.CacheKeys.LatestResult, &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

func (c *CacheService) SaveLatestResult(ctx context.Context, result *domain.AnalysisResult) error {
	return c.Set(ctx, constants.CacheKeys.LatestResult, result, constants.CacheTTL.LatestResult)
}
