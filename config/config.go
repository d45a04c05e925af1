// Package config provides configuration management for the scenario runner.
// Values come from an optional YAML file with ROWTRACK_* environment
// variables layered on top; a local .env file is honored if present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects and configures the database backend
type StorageConfig struct {
	// Type is "sqlite" or "postgresql"
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/rowtrack.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 4,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the optional YAML file at path and from the
// environment. Environment variables win over file values.
func Load(path string) (*Config, error) {
	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROWTRACK_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("ROWTRACK_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("ROWTRACK_POSTGRES_URL"); v != "" {
		cfg.Storage.PostgreSQL.URL = v
	}
	if v := os.Getenv("ROWTRACK_POSTGRES_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Storage.PostgreSQL.MaxConns = n
		}
	}
	if v := os.Getenv("ROWTRACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "sqlite", "postgresql":
	default:
		return fmt.Errorf("storage.type must be sqlite or postgresql, got %q", c.Storage.Type)
	}
	if c.Storage.Type == "postgresql" && c.Storage.PostgreSQL.URL == "" {
		return fmt.Errorf("storage.postgresql.url is required when storage.type is postgresql")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}
