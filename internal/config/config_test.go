package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5000, cfg.Frontier.MaxIterations)
	assert.InDelta(t, 1e-10, cfg.Frontier.Tolerance, 1e-15)
	assert.False(t, cfg.Frontier.FitTranslog)
	assert.InDelta(t, 0.10, cfg.Classify.LowerPct, 0.001)
	assert.InDelta(t, 0.90, cfg.Classify.UpperPct, 0.001)
	assert.InDelta(t, 30.0, cfg.Ceiling.ThresholdKM, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/yieldgap
survey:
  spec_path: vars.yaml
  epsilon: 0.001
frontier:
  fit_translog: true
  max_iterations: 2000
classify:
  lower_pct: 0.05
  upper_pct: 0.95
  keys: [soil_class, zone]
ceiling:
  threshold_km: 50
aggregate:
  group_by: [year, soil_class]
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/yieldgap", cfg.Store.DatabaseURL)
	assert.Equal(t, "vars.yaml", cfg.Survey.SpecPath)
	assert.InDelta(t, 0.001, cfg.Survey.Epsilon, 1e-9)
	assert.True(t, cfg.Frontier.FitTranslog)
	assert.Equal(t, 2000, cfg.Frontier.MaxIterations)
	assert.InDelta(t, 0.05, cfg.Classify.LowerPct, 0.001)
	assert.InDelta(t, 0.95, cfg.Classify.UpperPct, 0.001)
	assert.Equal(t, []string{"soil_class", "zone"}, cfg.Classify.Keys)
	assert.InDelta(t, 50.0, cfg.Ceiling.ThresholdKM, 0.001)
	assert.Equal(t, []string{"year", "soil_class"}, cfg.Aggregate.GroupBy)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("YIELDGAP_STORE_DRIVER", "postgres")
	t.Setenv("YIELDGAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
}
