package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Bilibili BilibiliConfig
	AI       AIConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Store    StoreConfig
	Export   ExportConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr string
}

type BilibiliConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type AIConfig struct {
	OpenAIModel string
	GeminiModel string
	Timeout     time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// StoreConfig selects where the user config blob lives.
type StoreConfig struct {
	Backend  string // "redis" or "file"
	FilePath string
	Key      string
}

type ExportConfig struct {
	Dir     string
	Formats []string
}

type LoggingConfig struct {
	Level string
	File  string
}

const (
	StoreBackendRedis = "redis"
	StoreBackendFile  = "file"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Bilibili: BilibiliConfig{
			BaseURL:   getEnv("BILIBILI_BASE_URL", constants.APIConfig.BilibiliBaseURL),
			Timeout:   time.Duration(getEnvInt("BILIBILI_TIMEOUT_SECONDS", int(constants.APIConfig.BilibiliTimeout/time.Second))) * time.Second,
			UserAgent: getEnv("BILIBILI_USER_AGENT", constants.APIConfig.BilibiliUserAgent),
		},
		AI: AIConfig{
			OpenAIModel: getEnv("AI_MODEL", constants.AIModels.DefaultOpenAI),
			GeminiModel: getEnv("AI_GEMINI_MODEL", constants.AIModels.DefaultGemini),
			Timeout:     time.Duration(getEnvInt("AI_TIMEOUT_SECONDS", int(constants.APIConfig.AIRequestTimeout/time.Second))) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "datafx"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "datafx"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Store: StoreConfig{
			Backend:  getEnv("CONFIG_STORE", StoreBackendFile),
			FilePath: getEnv("CONFIG_FILE", "data/user_config.json"),
			Key:      getEnv("CONFIG_KEY", constants.CacheKeys.UserConfig),
		},
		Export: ExportConfig{
			Dir:     getEnv("EXPORT_DIR", "exports"),
			Formats: parseCommaSeparated(getEnv("EXPORT_FORMATS", "csv,json")),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Bilibili.BaseURL == "" {
		return fmt.Errorf("BILIBILI_BASE_URL is required")
	}
	if c.Bilibili.Timeout <= 0 {
		return fmt.Errorf("BILIBILI_TIMEOUT_SECONDS must be positive")
	}
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("CONFIG_FILE is required for the file config store")
		}
	case StoreBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("CONFIG_STORE=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown CONFIG_STORE %q", c.Store.Backend)
	}
	for _, f := range c.Export.Formats {
		switch f {
		case "csv", "json", "xlsx":
		default:
			return fmt.Errorf("unknown export format %q", f)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
