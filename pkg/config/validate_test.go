package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/surfview/pkg/utils"
)

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func intPtr(i int) *int {
	return &i
}

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 5*time.Second, cfg.HarvestTimeout)
	assert.Equal(t, 20*time.Second, cfg.CaptureTimeout)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.IdleWindow)
	assert.Equal(t, 2, cfg.EffectiveIdleMaxInflight())
	assert.Equal(t, 2, cfg.MaxConcurrentSessions)
	assert.Equal(t, 2.0, cfg.LaunchesPerSecond)
	assert.Equal(t, 2, cfg.LaunchBurst)
	assert.Equal(t, 1, cfg.MaxRendersPerSite)
	assert.Equal(t, "naive", cfg.CookieScope)
	assert.Equal(t, ViewportConfig{Width: 1280, Height: 900, Scale: 2}, cfg.Viewport)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestAppConfig_Validate_ValidConfig(t *testing.T) {
	cfg := AppConfig{
		HarvestTimeout:        3 * time.Second,
		CaptureTimeout:        10 * time.Second,
		RequestTimeout:        30 * time.Second,
		IdleMaxInflight:       intPtr(0),
		MaxConcurrentSessions: 4,
		LaunchesPerSecond:     0.5,
		LaunchBurst:           1,
		MaxRendersPerSite:     2,
		CookieScope:           " NAIVE ",
		Viewport:              ViewportConfig{Width: 800, Height: 600, Scale: 1},
		LogLevel:              "debug",
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	// Values should be preserved
	assert.Equal(t, 3*time.Second, cfg.HarvestTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0, cfg.EffectiveIdleMaxInflight())
	assert.Equal(t, 4, cfg.MaxConcurrentSessions)
	assert.Equal(t, 0.5, cfg.LaunchesPerSecond)
	assert.Equal(t, 2, cfg.MaxRendersPerSite)
	assert.Equal(t, "naive", cfg.CookieScope)
	assert.Equal(t, int64(800), cfg.Viewport.Width)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestAppConfig_Validate_Warnings(t *testing.T) {
	cfg := AppConfig{
		HarvestTimeout:    5 * time.Second,
		CaptureTimeout:    20 * time.Second,
		RequestTimeout:    10 * time.Second,
		IdleMaxInflight:   intPtr(-1),
		LaunchesPerSecond: -1,
		MaxRendersPerSite: 5,
		CookieScope:       "publicsuffix",
		Viewport:          ViewportConfig{Scale: 8},
		LogLevel:          "chatty",
	}

	warnings, err := cfg.Validate()
	require.NoError(t, err)

	assert.True(t, containsWarning(warnings, "request_timeout"))
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, containsWarning(warnings, "idle_max_inflight"))
	assert.Nil(t, cfg.IdleMaxInflight)
	assert.True(t, containsWarning(warnings, "launches_per_second"))
	assert.Equal(t, 2.0, cfg.LaunchesPerSecond)
	assert.True(t, containsWarning(warnings, "max_renders_per_site"))
	assert.True(t, containsWarning(warnings, "publicsuffix"))
	assert.True(t, containsWarning(warnings, "viewport.scale"))
	assert.Equal(t, 4.0, cfg.Viewport.Scale)
	assert.True(t, containsWarning(warnings, "log_level"))
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestAppConfig_Validate_InvalidCookieScope(t *testing.T) {
	cfg := AppConfig{CookieScope: "psl"}
	_, err := cfg.Validate()

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConfigValidation))
	assert.Contains(t, err.Error(), "cookie_scope")
}
