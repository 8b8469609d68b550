// ABOUTME: Tests for the psyflow binary helpers
// ABOUTME: Covers path resolution, flag parsing, config fallback and log output

package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/psyflow/internal/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("PSYFLOW_CONFIG", "/etc/psyflow.yaml")
		assert.Equal(t, "/etc/psyflow.yaml", getConfigPath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("PSYFLOW_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		assert.Equal(t, filepath.Join("/tmp/xdg", "psyflow", "config.yaml"), getConfigPath())
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("PSYFLOW_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/ana")
		assert.Equal(t, filepath.Join("/home/ana", ".config", "psyflow", "config.yaml"), getConfigPath())
	})
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/data", "psyflow"), getDataPath())

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/ana")
	assert.Equal(t, filepath.Join("/home/ana", ".local", "share", "psyflow"), getDataPath())
}

func TestLoadConfig_FallsBackToDefaults(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataHome, "psyflow", config.DefaultDatabaseFile), cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0600))

	_, err := loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestOpenApp_WiresComponents(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Auth.BcryptCost = 4
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.WriteFile(path))

	a, err := openApp(path)
	require.NoError(t, err)
	defer a.Close()

	assert.FileExists(t, cfg.Database.Path)
	assert.Contains(t, a.gateway.Commands(), "register")
}

func TestParseRegisterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantName  string
		wantEmail string
		wantErr   string
	}{
		{
			name:      "separate values",
			args:      []string{"--name", "Ana", "--email", "ana@x.com"},
			wantName:  "Ana",
			wantEmail: "ana@x.com",
		},
		{
			name:      "equals form and short flags",
			args:      []string{"-n", " Ana ", "--email=ana@x.com"},
			wantName:  "Ana",
			wantEmail: "ana@x.com",
		},
		{name: "missing name", args: []string{"--email", "ana@x.com"}, wantErr: "--name flag is required"},
		{name: "missing email", args: []string{"--name", "Ana"}, wantErr: "--email flag is required"},
		{name: "dangling flag", args: []string{"--name"}, wantErr: "--name requires a value"},
		{name: "unknown flag", args: []string{"--admin"}, wantErr: "unknown flag: --admin"},
		{name: "stray argument", args: []string{"Ana"}, wantErr: "unexpected argument: Ana"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email, err := parseRegisterArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "store").Info("opened database", "path", "/tmp/x.db")
	logger.WithGroup("req").Warn("slow", "ms", 120)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF opened database component=store path=/tmp/x.db")
	assert.Contains(t, out, "WRN slow req.ms=120")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("skipped")
	logger.Error("boom", "component", "gateway")

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), `"msg":"boom"`)
	assert.Contains(t, buf.String(), `"level":"`+slog.LevelError.String()+`"`)
}
