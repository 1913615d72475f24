package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 200, cfg.Split.TargetSize)
	assert.Equal(t, 1.5, cfg.Split.MaxFactor)
	assert.Equal(t, 0.5, cfg.Split.MinFactor)
	assert.Equal(t, 0, cfg.Split.MaxPatches)
	assert.Equal(t, 8, cfg.Analyzer.Workers)
	assert.Equal(t, 0.3, cfg.Cohesion.Threshold)
	assert.False(t, cfg.Enrichment.Enabled)
	assert.Equal(t, "gpt-4o-mini", cfg.Enrichment.Model)
	assert.Equal(t, 20*time.Second, cfg.Enrichment.Timeout)
	assert.Equal(t, "patches", cfg.Output.Dir)
	assert.Equal(t, 10, cfg.GitHub.RateLimit)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero target size", func(c *Config) { c.Split.TargetSize = 0 }, "target_size"},
		{"max factor below one", func(c *Config) { c.Split.MaxFactor = 0.9 }, "max_factor"},
		{"min factor above one", func(c *Config) { c.Split.MinFactor = 1.2 }, "min_factor"},
		{"negative min factor", func(c *Config) { c.Split.MinFactor = -0.1 }, "min_factor"},
		{"zero workers", func(c *Config) { c.Analyzer.Workers = 0 }, "workers"},
		{"threshold out of range", func(c *Config) { c.Cohesion.Threshold = 1.5 }, "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
split:
  target_size: 120
  max_patches: 5
cohesion:
  threshold: 0.4
output:
  dir: out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PATCHFORGE_TARGET_SIZE", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Split.TargetSize)
	assert.Equal(t, 5, cfg.Split.MaxPatches)
	assert.Equal(t, 1.5, cfg.Split.MaxFactor, "unset keys keep defaults")
	assert.Equal(t, 0.4, cfg.Cohesion.Threshold)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("split:\n  target_size: -3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_size")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PATCHFORGE_TARGET_SIZE", "75")
	t.Setenv("PATCHFORGE_WORKERS", "3")
	t.Setenv("PATCHFORGE_ENRICHMENT", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GITHUB_TOKEN", "ghp-test")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, 75, cfg.Split.TargetSize)
	assert.Equal(t, 3, cfg.Analyzer.Workers)
	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, "sk-test", cfg.Enrichment.APIKey)
	assert.Equal(t, "ghp-test", cfg.GitHub.Token)
}

func TestEnvOverridesIgnoreInvalid(t *testing.T) {
	t.Setenv("PATCHFORGE_TARGET_SIZE", "not-a-number")
	t.Setenv("PATCHFORGE_WORKERS", "-2")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, 200, cfg.Split.TargetSize)
	assert.Equal(t, 8, cfg.Analyzer.Workers)
}
