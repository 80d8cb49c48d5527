// Package configstore persists the user configuration blob.
package configstore

import (
	"context"
	"encoding/json"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/pkg/errors"
	"go.uber.org/zap"
)

// Store loads and saves the user configuration. Load merges stored values over
// domain.DefaultUserConfig so fields added later keep their defaults.
type Store interface {
	Load(ctx context.Context) (domain.UserConfig, error)
	Save(ctx context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error)
}

// decode merges blob over the defaults. A corrupt blob yields the defaults.
func decode(blob []byte, logger *zap.Logger) domain.UserConfig {
	cfg := domain.DefaultUserConfig()
	if len(blob) == 0 {
		return cfg
	}
	if err := json.Unmarshal(blob, &cfg); err != nil {
		logger.Warn("Stored user config is corrupt, using defaults", zap.Error(err))
		return domain.DefaultUserConfig()
	}
	return cfg
}

// Validate checks a merged configuration before it is persisted.
func Validate(cfg domain.UserConfig) error {
	switch cfg.Theme {
	case domain.ThemeLight, domain.ThemeDark, domain.ThemeAuto:
	default:
		return errors.NewValidationError("theme must be light, dark or auto", "theme", cfg.Theme)
	}
	if cfg.VideoLimit < 1 || cfg.VideoLimit > constants.AnalysisConfig.MaxVideoLimit {
		return errors.NewValidationError("videoLimit out of range", "videoLimit", cfg.VideoLimit)
	}
	if cfg.RefreshIntervalMinutes < 0 {
		return errors.NewValidationError("refresh_interval must not be negative", "refresh_interval", cfg.RefreshIntervalMinutes)
	}
	return nil
}
