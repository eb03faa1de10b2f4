// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable NoteUp reads.
const EnvPrefix = "NOTEUP_"

// Config holds the application configuration.
type Config struct {
	App    AppConfig    `envPrefix:""`
	Logger LoggerConfig `envPrefix:"LOG_"`
	Source SourceConfig `envPrefix:"KOBO_"`
	Export ExportConfig `envPrefix:"EXPORT_"`
	Server ServerConfig `envPrefix:"SERVER_"`
	Watch  WatchConfig  `envPrefix:"WATCH_"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT"` // json or pretty; empty picks by environment
}

// SourceConfig locates the Kobo database.
type SourceConfig struct {
	// DatabasePath points at KoboReader.sqlite, usually <mount>/.kobo/KoboReader.sqlite.
	DatabasePath string `env:"DB_PATH"`
}

// ExportConfig holds defaults for export runs.
type ExportConfig struct {
	OutputDir          string `env:"DIR" envDefault:"."`
	Format             string `env:"FORMAT" envDefault:"markdown"`
	Topology           string `env:"TOPOLOGY" envDefault:"combined"`
	Concurrency        int    `env:"CONCURRENCY" envDefault:"4"`
	OmitEmptyChapters  bool   `env:"OMIT_EMPTY_CHAPTERS" envDefault:"false"`
	IncludeDescription bool   `env:"INCLUDE_DESCRIPTION" envDefault:"false"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// WatchConfig holds source file watching configuration.
type WatchConfig struct {
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"2s"`
}

// Flags carries command-line overrides. Empty values leave the
// environment (or default) value in place.
type Flags struct {
	EnvFile      string
	Environment  string
	LogLevel     string
	DatabasePath string
	OutputDir    string
	Format       string
	Topology     string
	Port         string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyFlags(flags)

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFlags(f Flags) {
	override(&c.App.Environment, f.Environment)
	override(&c.Logger.Level, f.LogLevel)
	override(&c.Source.DatabasePath, f.DatabasePath)
	override(&c.Export.OutputDir, f.OutputDir)
	override(&c.Export.Format, f.Format)
	override(&c.Export.Topology, f.Topology)
	override(&c.Server.Port, f.Port)
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Export.Format {
	case "markdown", "text":
	default:
		return fmt.Errorf("invalid export format: %q (must be markdown or text)", c.Export.Format)
	}

	switch c.Export.Topology {
	case "single", "combined", "archive":
	default:
		return fmt.Errorf("invalid export topology: %q (must be single, combined, or archive)", c.Export.Topology)
	}

	if c.Export.Concurrency < 1 {
		return errors.New("export concurrency must be at least 1")
	}

	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		return errors.New("rate limit must allow at least one request")
	}

	// DatabasePath may be empty here; commands that need it check via RequireSource.
	return nil
}

// RequireSource reports an error when no Kobo database path is configured.
func (c *Config) RequireSource() error {
	if c.Source.DatabasePath == "" {
		return fmt.Errorf("no Kobo database configured: pass --db or set %sKOBO_DB_PATH", EnvPrefix)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandPaths() error {
	dbPath, err := expandPath(c.Source.DatabasePath, "")
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	c.Source.DatabasePath = dbPath

	outDir, err := expandPath(c.Export.OutputDir, "")
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}
	c.Export.OutputDir = outDir
	return nil
}
