// Package config loads cella settings. Local settings (backend, data
// directory, server and cache tuning) live in config.yaml in the config
// directory; the hosted backend credentials come from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cella-health/cella/internal/aggregate"
	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// FileName is the config file inside the config directory.
	FileName = "config.yaml"

	// Config keys.
	KeyBackend     = "backend"
	KeyDataDir     = "data_dir"
	KeyDSN         = "dsn"
	KeyListen      = "listen"
	KeyLogLevel    = "log_level"
	KeyCacheGrace  = "cache.grace_period"
	KeyConcurrency = "aggregate.concurrency"

	DefaultListen   = "127.0.0.1:8080"
	DefaultLogLevel = "info"
)

// Settings is the resolved content of config.yaml.
type Settings struct {
	Backend     string
	DataDir     string
	DSN         string
	Listen      string
	LogLevel    string
	CacheGrace  time.Duration
	Concurrency int
}

// StoreConfig returns the backend configuration for dataDir.
func (s Settings) StoreConfig(dataDir string) types.Config {
	return types.Config{Backend: s.Backend, DataDir: dataDir, DSN: s.DSN}
}

// fileLayout is the shape written to config.yaml on first run.
type fileLayout struct {
	Backend   string          `yaml:"backend"`
	DataDir   string          `yaml:"data_dir,omitempty"`
	DSN       string          `yaml:"dsn,omitempty"`
	Listen    string          `yaml:"listen"`
	LogLevel  string          `yaml:"log_level"`
	Cache     cacheLayout     `yaml:"cache"`
	Aggregate aggregateLayout `yaml:"aggregate"`
}

type cacheLayout struct {
	GracePeriod string `yaml:"grace_period"`
}

type aggregateLayout struct {
	Concurrency int `yaml:"concurrency"`
}

// WriteDefault creates configDir and writes a default config.yaml into it
// unless one already exists. dataDir is recorded when non-empty.
func WriteDefault(configDir, dataDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&fileLayout{
		Backend:   types.BackendSQLite,
		DataDir:   dataDir,
		Listen:    DefaultListen,
		LogLevel:  DefaultLogLevel,
		Cache:     cacheLayout{GracePeriod: cache.DefaultGracePeriod.String()},
		Aggregate: aggregateLayout{Concurrency: aggregate.DefaultConcurrency},
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads config.yaml from configDir. A missing file yields the defaults.
func Load(configDir string) (Settings, error) {
	v := viper.New()
	v.SetDefault(KeyBackend, types.BackendSQLite)
	v.SetDefault(KeyListen, DefaultListen)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyCacheGrace, cache.DefaultGracePeriod)
	v.SetDefault(KeyConcurrency, aggregate.DefaultConcurrency)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := Settings{
		Backend:     v.GetString(KeyBackend),
		DataDir:     v.GetString(KeyDataDir),
		DSN:         v.GetString(KeyDSN),
		Listen:      v.GetString(KeyListen),
		LogLevel:    v.GetString(KeyLogLevel),
		CacheGrace:  v.GetDuration(KeyCacheGrace),
		Concurrency: v.GetInt(KeyConcurrency),
	}
	if s.CacheGrace <= 0 {
		return Settings{}, fmt.Errorf("%s must be positive", KeyCacheGrace)
	}
	return s, nil
}

// Remote holds the hosted backend credentials.
type Remote struct {
	URL    string `env:"CELLA_BACKEND_URL,required,notEmpty"`
	APIKey string `env:"CELLA_API_KEY,required,notEmpty"`
}

// LoadRemote reads the backend credentials from the environment. Both
// variables are required.
func LoadRemote() (Remote, error) {
	var r Remote
	if err := env.Parse(&r); err != nil {
		return Remote{}, fmt.Errorf("parse env: %w", err)
	}
	return r, nil
}
