package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Timeouts
	if c.HarvestTimeout <= 0 {
		c.HarvestTimeout = DefaultHarvestTimeout
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = DefaultCaptureTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RequestTimeout < c.HarvestTimeout+c.CaptureTimeout {
		warnings = append(warnings, fmt.Sprintf(
			"request_timeout (%v) is shorter than harvest_timeout + capture_timeout (%v), raising it",
			c.RequestTimeout, c.HarvestTimeout+c.CaptureTimeout))
		c.RequestTimeout = c.HarvestTimeout + c.CaptureTimeout + DefaultHarvestTimeout
	}

	// Network idle
	if c.IdleWindow <= 0 {
		c.IdleWindow = DefaultIdleWindow
	}
	if c.IdleMaxInflight != nil && *c.IdleMaxInflight < 0 {
		warnings = append(warnings, fmt.Sprintf("idle_max_inflight cannot be negative, defaulting to %d", DefaultIdleMaxInflight))
		c.IdleMaxInflight = nil
	}

	// Sessions
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = DefaultMaxConcurrentSessions
	}
	if c.LaunchesPerSecond < 0 {
		warnings = append(warnings, "launches_per_second cannot be negative, defaulting to 2")
		c.LaunchesPerSecond = DefaultLaunchesPerSecond
	} else if c.LaunchesPerSecond == 0 {
		c.LaunchesPerSecond = DefaultLaunchesPerSecond
	}
	if c.LaunchBurst <= 0 {
		c.LaunchBurst = DefaultLaunchBurst
	}
	if c.MaxRendersPerSite <= 0 {
		c.MaxRendersPerSite = DefaultMaxRendersPerSite
	} else if c.MaxRendersPerSite > c.MaxConcurrentSessions {
		warnings = append(warnings, fmt.Sprintf("max_renders_per_site (%d) exceeds max_concurrent_sessions (%d) and has no effect",
			c.MaxRendersPerSite, c.MaxConcurrentSessions))
	}

	// CookieScope
	c.CookieScope = strings.ToLower(strings.TrimSpace(c.CookieScope))
	switch c.CookieScope {
	case "":
		c.CookieScope = DefaultCookieScope
	case "naive":
	case "publicsuffix":
		warnings = append(warnings, "cookie_scope 'publicsuffix' changes which harvested cookies are replayed compared to the default")
	default:
		return warnings, fmt.Errorf("%w: cookie_scope must be 'naive' or 'publicsuffix', got %q", utils.ErrConfigValidation, c.CookieScope)
	}

	// Viewport
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = DefaultViewportWidth
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = DefaultViewportHeight
	}
	if c.Viewport.Scale <= 0 {
		c.Viewport.Scale = DefaultViewportScale
	} else if c.Viewport.Scale > 4 {
		warnings = append(warnings, fmt.Sprintf("viewport.scale %v is very large, capping at 4", c.Viewport.Scale))
		c.Viewport.Scale = 4
	}

	// Server
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// LogLevel
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		warnings = append(warnings, fmt.Sprintf("log_level %q is not a valid level, defaulting to 'info'", c.LogLevel))
		c.LogLevel = DefaultLogLevel
	}

	return warnings, nil
}
