package configstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Load(_ context.Context) (domain.UserConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (domain.UserConfig, error) {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.DefaultUserConfig(), nil
	}
	if err != nil {
		return domain.UserConfig{}, errors.NewServiceError("read user config", "configstore", "load", err)
	}
	return decode(blob, s.logger), nil
}

func (s *FileStore) Save(_ context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
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

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return domain.UserConfig{}, errors.NewServiceError("create config dir", "configstore", "save", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0600); err != nil {
		return domain.UserConfig{}, errors.NewServiceError("write user config", "configstore", "save", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return domain.UserConfig{}, errors.NewServiceError("replace user config", "configstore", "save", err)
	}

	s.logger.Info("User config saved", zap.String("path", s.path))
	return updated, nil
}
