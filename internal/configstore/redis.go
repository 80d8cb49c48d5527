package configstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/service/cache"
	"github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

// RedisStore keeps the blob under a single string key.
type RedisStore struct {
	cache  *cache.CacheService
	key    string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewRedisStore(cacheSvc *cache.CacheService, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{cache: cacheSvc, key: key, logger: logger}
}

func (s *RedisStore) Load(ctx context.Context) (domain.UserConfig, error) {
	raw, found, err := s.cache.GetRaw(ctx, s.key)
	if err != nil {
		return domain.UserConfig{}, err
	}
	if !found {
		return domain.DefaultUserConfig(), nil
	}
	return decode([]byte(raw), s.logger), nil
}

func (s *RedisStore) Save(ctx context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return domain.UserConfig{}, err
	}

	updated := patch.Apply(current)
	if err := Validate(updated); err != nil {
		return domain.UserConfig{}, err
	}

	blob, err := json.Marshal(updated)
	if err != nil {
		return domain.UserConfig{}, errors.NewServiceError("encode user config", "configstore", "save", err)
	}
	if err := s.cache.SetRaw(ctx, s.key, string(blob)); err != nil {
		return domain.UserConfig{}, err
	}

	s.logger.Info("User config saved", zap.String("key", s.key))
	return updated, nil
}
