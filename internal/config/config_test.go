package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Export: ExportConfig{
			OutputDir:   "/tmp/out",
			Format:      "markdown",
			Topology:    "combined",
			Concurrency: 4,
		},
		Server: ServerConfig{RateLimitRPS: 10, RateLimitBurst: 20},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"INFO", true},
		{"warn", true},
		{"error", true},
		{"verbose", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ExportSettings(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		cfg := validConfig()
		cfg.Export.Format = "pdf"
		assert.ErrorContains(t, cfg.Validate(), "export format")
	})

	t.Run("unknown topology", func(t *testing.T) {
		cfg := validConfig()
		cfg.Export.Topology = "tarball"
		assert.ErrorContains(t, cfg.Validate(), "export topology")
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := validConfig()
		cfg.Export.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "concurrency")
	})
}

func TestRequireSource(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.RequireSource())

	cfg.Source.DatabasePath = "/media/KOBOeReader/.kobo/KoboReader.sqlite"
	assert.NoError(t, cfg.RequireSource())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default")
		require.NoError(t, err)
		assert.Equal(t, "/default", got)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		got, err := expandPath("~/kobo/KoboReader.sqlite", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "kobo", "KoboReader.sqlite"), got)
	})

	t.Run("relative becomes absolute", func(t *testing.T) {
		got, err := expandPath("notes", "")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("absolute is cleaned", func(t *testing.T) {
		got, err := expandPath("/a/b/../c", "")
		require.NoError(t, err)
		assert.Equal(t, "/a/c", got)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(Flags{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "markdown", cfg.Export.Format)
	assert.Equal(t, "combined", cfg.Export.Topology)
	assert.Equal(t, 4, cfg.Export.Concurrency)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Watch.SettleDelay)
	assert.Empty(t, cfg.Source.DatabasePath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"NOTEUP_EXPORT_FORMAT=text\nNOTEUP_EXPORT_TOPOLOGY=archive\nNOTEUP_SERVER_PORT=9000\n",
	), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("NOTEUP_EXPORT_FORMAT")
		_ = os.Unsetenv("NOTEUP_SERVER_PORT")
	})

	// Environment beats the .env file.
	t.Setenv("NOTEUP_EXPORT_TOPOLOGY", "single")
	// Flags beat both.
	cfg, err := LoadConfig(Flags{EnvFile: envFile, Port: "7000", DatabasePath: "KoboReader.sqlite"})
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Export.Format)
	assert.Equal(t, "single", cfg.Export.Topology)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "KoboReader.sqlite"), cfg.Source.DatabasePath)
}

func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTEUP_EXPORT_CONCURRENCY", "0")

	_, err := LoadConfig(Flags{})
	assert.ErrorContains(t, err, "config validation failed")
}
