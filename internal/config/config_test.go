// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3vnull/restitch/api/schemas"
)

func TestLoad_Defaults(t *testing.T) {
	// No config file anywhere near the test; defaults must carry the day.
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "restitch", cfg.Logger.ServiceName)

	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, 500, cfg.Engine.BackoffMs)
	assert.Equal(t, "exponential", cfg.Engine.Strategy)
	assert.True(t, cfg.Engine.StopOnError)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1440, cfg.Browser.WindowWidth)
	assert.Equal(t, 900, cfg.Browser.WindowHeight)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 25.0, cfg.Browser.MaxOpsPerSecond)

	assert.Empty(t, cfg.Vision.Provider, "vision is opt-in")
	assert.Equal(t, 1024, cfg.Vision.MaxTokens)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restitch.yaml")
	yaml := `
logger:
  level: debug
  format: json
engine:
  max_attempts: 7
  backoff_ms: 100
  strategy: linear
browser:
  headless: false
  window_width: 800
vision:
  provider: claude
  model: some-model
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 7, cfg.Engine.MaxAttempts)
	assert.Equal(t, "linear", cfg.Engine.Strategy)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 800, cfg.Browser.WindowWidth)
	// Unset keys keep their defaults.
	assert.Equal(t, 900, cfg.Browser.WindowHeight)
	assert.Equal(t, "claude", cfg.Vision.Provider)
	assert.Equal(t, "some-model", cfg.Vision.Model)
}

func TestEngineConfig_RetryConfig(t *testing.T) {
	e := EngineConfig{MaxAttempts: 4, BackoffMs: 250, Strategy: "linear"}
	rc := e.RetryConfig()
	assert.Equal(t, schemas.RetryConfig{MaxAttempts: 4, BackoffMs: 250, Strategy: schemas.BackoffLinear}, rc)

	// Garbage strategy normalizes to the exponential default.
	bad := EngineConfig{MaxAttempts: 0, BackoffMs: -1, Strategy: "polynomial"}
	rc = bad.RetryConfig()
	assert.Equal(t, 1, rc.MaxAttempts)
	assert.Equal(t, 0, rc.BackoffMs)
	assert.Equal(t, schemas.BackoffExponential, rc.Strategy)
}
