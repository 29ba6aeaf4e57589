package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NREL_API_KEY", "nrel-test")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gridmind", cfg.ServiceName)
	assert.Equal(t, 5, cfg.Resilience.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Resilience.Breaker.OpenTimeout)
	assert.Equal(t, 2, cfg.Resilience.Breaker.SuccessThreshold)
	assert.Equal(t, 3, cfg.Resilience.Retry.MaxAttempts)
	assert.True(t, cfg.Resilience.Retry.Jitter)

	// Freshness TTLs are deliberately longer than cache TTLs.
	assert.Equal(t, 720*time.Hour, cfg.Freshness.StationTTL)
	assert.Equal(t, 168*time.Hour, cfg.Freshness.UtilityTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Freshness.BuildingsTTL)
}

func TestLoadConfigRequiresKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NREL_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfiguration))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("GRIDMIND_BREAKER_FAILURE_THRESHOLD", "7")
	t.Setenv("GRIDMIND_BREAKER_OPEN_TIMEOUT", "90s")
	t.Setenv("GRIDMIND_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GRIDMIND_STATION_DATA_TTL", "48h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Resilience.Breaker.FailureThreshold)
	assert.Equal(t, 90*time.Second, cfg.Resilience.Breaker.OpenTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 48*time.Hour, cfg.Freshness.StationTTL)
}

func TestLoadConfigYAMLFile(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "gridmind.yaml")
	data := []byte(`
service_name: gridmind-staging
resilience:
  breaker:
    failure_threshold: 3
    open_timeout: 30s
    success_threshold: 1
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("GRIDMIND_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gridmind-staging", cfg.ServiceName)
	assert.Equal(t, 3, cfg.Resilience.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Resilience.Breaker.OpenTimeout)
}

func TestLoadConfigEnvBeatsFile(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "gridmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: from-file\n"), 0o644))
	t.Setenv("GRIDMIND_CONFIG", path)
	t.Setenv("GRIDMIND_SERVICE_NAME", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ServiceName)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	validEnv(t)

	cases := []func(*Config){
		func(c *Config) { c.Resilience.Breaker.FailureThreshold = 0 },
		func(c *Config) { c.Resilience.Breaker.SuccessThreshold = 0 },
		func(c *Config) { c.Resilience.Breaker.OpenTimeout = 0 },
		func(c *Config) { c.Resilience.Retry.MaxAttempts = 0 },
		func(c *Config) { c.Resilience.Retry.ExponentialBase = 0.5 },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		cfg.AI.APIKey = "sk-test"
		cfg.APIs.NRELAPIKey = "nrel-test"
		mutate(cfg)

		err := cfg.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "case %d: %v", i, err)
	}
}
