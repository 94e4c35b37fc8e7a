package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".framebudget", "framebudget.db"), cfg.DBPath)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.CacheFailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.CachePollInterval)
	assert.Equal(t, 60*time.Second, cfg.LivenessInterval)
	assert.Equal(t, time.Second, cfg.LivenessTimeout)
	assert.Equal(t, 5*time.Second, cfg.NodeTimeout)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FRAMEBUDGET_DB", "/tmp/fb.db")
	t.Setenv("FRAMEBUDGET_CACHE_URL", "redis://cache:6379/2")
	t.Setenv("FRAMEBUDGET_CACHE_TTL", "10m")
	t.Setenv("FRAMEBUDGET_CACHE_FAILURE_THRESHOLD", "5")
	t.Setenv("FRAMEBUDGET_LIVENESS_TIMEOUT", "2s")
	t.Setenv("FRAMEBUDGET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fb.db", cfg.DBPath)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.CacheFailureThreshold)
	assert.Equal(t, 2*time.Second, cfg.LivenessTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("FRAMEBUDGET_DB", "/tmp/fb.db")
	t.Setenv("FRAMEBUDGET_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoad_ValidationError(t *testing.T) {
	t.Setenv("FRAMEBUDGET_DB", "/tmp/fb.db")
	t.Setenv("FRAMEBUDGET_CACHE_FAILURE_THRESHOLD", "0")
	t.Setenv("FRAMEBUDGET_LIVENESS_TIMEOUT", "30s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CacheFailureThreshold failed gte")
	assert.Contains(t, err.Error(), "LivenessTimeout failed lte")
}

func TestAliasRule(t *testing.T) {
	tests := []struct {
		name    string
		aliases []string
		input   string
		want    string
		match   bool
	}{
		{"default", nil, "Eastern suurpiiri", "Eastern", true},
		{"off", []string{"OFF"}, "Eastern suurpiiri", "", false},
		{"custom", []string{`^Area (?P<district>\w+)$`}, "Area North", "North", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DistrictAliases: tt.aliases}
			rule, err := cfg.AliasRule()
			require.NoError(t, err)
			got, ok := rule.District(tt.input)
			assert.Equal(t, tt.match, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAliasRule_InvalidPattern(t *testing.T) {
	cfg := &Config{DistrictAliases: []string{"(unclosed"}}
	_, err := cfg.AliasRule()
	require.Error(t, err)
}
