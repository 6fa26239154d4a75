package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, "gpt-4o-mini", cfg.OracleModel)
	assert.InDelta(t, 0.3, cfg.OracleTemperature, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.AnalysisFreshness)
	assert.Equal(t, uint64(1), cfg.OracleMaxRetries)
	assert.Equal(t, 512, cfg.OracleCacheSize)
	assert.Equal(t, time.Hour, cfg.OracleCacheTTL)
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ORACLE_MODEL", "gpt-4o")
	t.Setenv("ORACLE_TIMEOUT", "5s")
	t.Setenv("ANALYSIS_FRESHNESS", "12h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "gpt-4o", cfg.OracleModel)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 12*time.Hour, cfg.AnalysisFreshness)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func Test_Load_InvalidDuration(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func TestGetOracleBackoffConfig(t *testing.T) {
	cfg := Config{AppEnv: "test", OracleMaxRetries: 2, OracleBackoffInitial: time.Second, OracleBackoffMax: 10 * time.Second}
	retries, initial, maxInterval := cfg.GetOracleBackoffConfig()
	assert.Equal(t, uint64(2), retries)
	assert.Less(t, initial, time.Second)
	assert.Less(t, maxInterval, 10*time.Second)

	cfg.AppEnv = "prod"
	retries, initial, maxInterval = cfg.GetOracleBackoffConfig()
	assert.Equal(t, uint64(2), retries)
	assert.Equal(t, time.Second, initial)
	assert.Equal(t, 10*time.Second, maxInterval)
}

func TestConfig_GetOracleCacheTTL(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		freshness time.Duration
		want      time.Duration
	}{
		{name: "within freshness", ttl: time.Hour, freshness: 24 * time.Hour, want: time.Hour},
		{name: "capped at freshness", ttl: 48 * time.Hour, freshness: 24 * time.Hour, want: 24 * time.Hour},
		{name: "unset uses freshness", ttl: 0, freshness: 12 * time.Hour, want: 12 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{OracleCacheTTL: tt.ttl, AnalysisFreshness: tt.freshness}
			assert.Equal(t, tt.want, cfg.GetOracleCacheTTL())
		})
	}
}
