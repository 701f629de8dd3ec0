package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEV_MODE", "")
	t.Setenv("QUANTCORE_WORKERS", "")
	t.Setenv("QUANTCORE_TUNABLES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 0.2, cfg.Tunables.Shrinkage.FixedLambda)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("QUANTCORE_WORKERS", "8")
	t.Setenv("QUANTCORE_TUNABLES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoad_RejectsNonPositiveWorkers(t *testing.T) {
	t.Setenv("QUANTCORE_WORKERS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("QC_TEST_STR", "value")
	t.Setenv("QC_TEST_INT", "42")
	t.Setenv("QC_TEST_BOOL", "true")
	t.Setenv("QC_TEST_BAD_INT", "not-a-number")

	assert.Equal(t, "value", getEnv("QC_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnv("QC_TEST_UNSET", "fallback"))
	assert.Equal(t, 42, getEnvAsInt("QC_TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("QC_TEST_BAD_INT", 1))
	assert.True(t, getEnvAsBool("QC_TEST_BOOL", false))
	assert.False(t, getEnvAsBool("QC_TEST_UNSET", false))
}
