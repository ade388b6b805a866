// Package config loads runtime settings from an optional YAML file, .env
// files and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Item body renderers
const (
	RendererMarkdown = "markdown"
	RendererPlain    = "plain"
)

// Config holds every runtime setting
type Config struct {
	BaseURL          string        `yaml:"base_url"`
	DataDir          string        `yaml:"data_dir"`
	Backend          string        `yaml:"backend"`
	RulesFile        string        `yaml:"rules_file"`
	Language         string        `yaml:"language"`
	Timezone         string        `yaml:"timezone"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	Renderer         string        `yaml:"renderer"`
	UserAgent        string        `yaml:"user_agent"`
	PersistEachMonth bool          `yaml:"persist_each_month"`
	Log              LogConfig     `yaml:"log"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		BaseURL:          "https://blog.fefe.de",
		DataDir:          "data",
		Backend:          BackendJSON,
		Language:         "german",
		Timezone:         "Europe/Berlin",
		HTTPTimeout:      30 * time.Second,
		Renderer:         RendererMarkdown,
		UserAgent:        "fefe-corpus/1.0 (archive crawler)",
		PersistEachMonth: true,
		Log:              LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty or point to a missing
// file, in which case only defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := loadEnvFiles(); err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Variables already in the environment win; missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.BaseURL, "FEFE_BASE_URL")
	setString(&c.DataDir, "FEFE_DATA_DIR")
	setString(&c.Backend, "FEFE_BACKEND")
	setString(&c.RulesFile, "FEFE_RULES_FILE")
	setString(&c.Language, "FEFE_LANGUAGE")
	setString(&c.Timezone, "FEFE_TIMEZONE")
	setString(&c.UserAgent, "FEFE_USER_AGENT")
	setString(&c.Renderer, "FEFE_RENDERER")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("FEFE_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FEFE_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("FEFE_PERSIST_EACH_MONTH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FEFE_PERSIST_EACH_MONTH: %w", err)
		}
		c.PersistEachMonth = b
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_DEVELOPMENT: %w", err)
		}
		c.Log.Development = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the settings for obvious mistakes
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendJSON, BackendSQLite)
	}
	switch c.Renderer {
	case RendererMarkdown, RendererPlain:
	default:
		return fmt.Errorf("unknown renderer %q (want %s or %s)", c.Renderer, RendererMarkdown, RendererPlain)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	return nil
}

// Location returns the configured timezone
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SnapshotPath is the JSON snapshot file
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "data.json")
}

// DatabasePath is the SQLite snapshot file
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "data.db")
}

// ExportPath is the training JSONL file
func (c Config) ExportPath() string {
	return filepath.Join(c.DataDir, "data.jsonl")
}
