// Package config loads querykit command settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/manojoshi/querykit/log"
)

// Backend names.
const (
	BackendHash   = "hash"
	BackendSearch = "search"
)

// Config holds everything the CLI needs to reach Redis and run queries.
type Config struct {
	Redis    RedisConfig
	Index    string
	Prefix   string
	PageSize int
	Backend  string
	Fallback bool
	LogLevel string
}

// RedisConfig is the connection part of Config.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the environment. Files in envFiles are
// loaded first; a missing file is not an error. Variables already set in
// the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	db, err := getIntEnv("QUERYKIT_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	pageSize, err := getIntEnv("QUERYKIT_PAGE_SIZE", 20)
	if err != nil {
		return nil, err
	}
	fallback, err := getBoolEnv("QUERYKIT_FALLBACK", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Redis: RedisConfig{
			Addr:     getEnv("QUERYKIT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("QUERYKIT_REDIS_PASSWORD", ""),
			DB:       db,
		},
		Index:    getEnv("QUERYKIT_INDEX", ""),
		Prefix:   getEnv("QUERYKIT_PREFIX", "order:"),
		PageSize: pageSize,
		Backend:  strings.ToLower(getEnv("QUERYKIT_BACKEND", BackendHash)),
		Fallback: fallback,
		LogLevel: strings.ToLower(getEnv("QUERYKIT_LOG_LEVEL", log.LevelInfo)),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: QUERYKIT_REDIS_ADDR is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: QUERYKIT_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: QUERYKIT_PAGE_SIZE must be >= 1, got %d", c.PageSize)
	}
	switch c.Backend {
	case BackendHash, BackendSearch:
	default:
		return fmt.Errorf("config: QUERYKIT_BACKEND must be %q or %q, got %q", BackendHash, BackendSearch, c.Backend)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: QUERYKIT_LOG_LEVEL: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
