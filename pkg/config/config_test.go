package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:       EnvDevelopment,
		APIPrefix: "/api/v1",
		JWT:       JWTConfig{Secret: defaultJWTSecret},
		Scheduler: SchedulerConfig{Enabled: true, Timezone: "Asia/Jakarta", Workers: 2},
		Mail:      MailConfig{From: "noreply@school.local"},
		RateLimit: RateLimitConfig{FallbackEnabled: true, FallbackMax: 100},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsProductionDevSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = EnvProduction
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWT.Secret = "a-real-secret"
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Workers = 0
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.RateLimit.FallbackMax = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_WORKERS")
	assert.Contains(t, err.Error(), "Mars/Olympus")
	assert.Contains(t, err.Error(), "RATE_LIMIT_FALLBACK_MAX")
}

func TestLoadReadsEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	t.Setenv("RATE_LIMIT_RULES", "POST /api/v1/reports/export=60000:5")
	t.Setenv("REPORTS_RESULT_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", cfg.Scheduler.Timezone)
	assert.Equal(t, "POST /api/v1/reports/export=60000:5", cfg.RateLimit.Rules)
	assert.Equal(t, 48*time.Hour, cfg.Reports.ResultTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.FallbackWindow)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
}
