package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 100000, cfg.Search.MaxIterations)
	assert.Equal(t, 2*time.Minute, cfg.Search.Timeout)
	assert.Equal(t, "Friday", cfg.Search.LowPreferenceDay)
	assert.Equal(t, []string{"16:", "17:"}, cfg.Search.LateHourPrefixes)
	assert.Equal(t, 30*time.Minute, cfg.Results.TTL)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Export.LinkTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_PREFIX", "/v2/")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://timetable.example.edu ,")
	t.Setenv("SEARCH_TIMEOUT", "45s")
	t.Setenv("RESULT_TTL", "not-a-duration")
	t.Setenv("ENABLE_RUN_AUDIT", "true")
	t.Setenv("SEARCH_LATE_HOUR_PREFIXES", "18:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/v2", cfg.APIPrefix)
	assert.Equal(t, []string{"http://localhost:3000", "https://timetable.example.edu"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Results.TTL)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, []string{"18:"}, cfg.Search.LateHourPrefixes)
}

func TestSlotPreferencesCanBeDisabled(t *testing.T) {
	t.Setenv("SEARCH_LOW_PREFERENCE_DAY", "none")
	t.Setenv("SEARCH_LATE_HOUR_PREFIXES", "NONE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Search.LowPreferenceDay)
	assert.Empty(t, cfg.Search.LateHourPrefixes)

	t.Setenv("SEARCH_LOW_PREFERENCE_DAY", " Thursday ")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "Thursday", cfg.Search.LowPreferenceDay)
	assert.Equal(t, []string{"16:", "17:"}, cfg.Search.LateHourPrefixes)
}
