package config

import "time"

// AppConfig holds the global application configuration
// YAML supplies the base values; SURFVIEW_* environment variables override them
type AppConfig struct {
	ChromePath            string         `yaml:"chrome_path,omitempty" envconfig:"CHROME_PATH"` // Consulted only when no installed engine is found
	HarvestTimeout        time.Duration  `yaml:"harvest_timeout,omitempty" envconfig:"HARVEST_TIMEOUT"`
	CaptureTimeout        time.Duration  `yaml:"capture_timeout,omitempty" envconfig:"CAPTURE_TIMEOUT"`
	RequestTimeout        time.Duration  `yaml:"request_timeout,omitempty" envconfig:"REQUEST_TIMEOUT"` // Whole renderUrl call, including launch and teardown
	IdleWindow            time.Duration  `yaml:"idle_window,omitempty" envconfig:"IDLE_WINDOW"`
	IdleMaxInflight       *int           `yaml:"idle_max_inflight,omitempty" envconfig:"IDLE_MAX_INFLIGHT"` // nil = default, 0 is meaningful
	MaxConcurrentSessions int            `yaml:"max_concurrent_sessions,omitempty" envconfig:"MAX_CONCURRENT_SESSIONS"`
	LaunchesPerSecond     float64        `yaml:"launches_per_second,omitempty" envconfig:"LAUNCHES_PER_SECOND"`
	LaunchBurst           int            `yaml:"launch_burst,omitempty" envconfig:"LAUNCH_BURST"`
	MaxRendersPerSite     int            `yaml:"max_renders_per_site,omitempty" envconfig:"MAX_RENDERS_PER_SITE"`
	CookieScope           string         `yaml:"cookie_scope,omitempty" envconfig:"COOKIE_SCOPE"` // "naive" or "publicsuffix"
	Viewport              ViewportConfig `yaml:"viewport,omitempty" envconfig:"VIEWPORT"`
	Server                ServerConfig   `yaml:"server,omitempty" envconfig:"SERVER"`
	LogLevel              string         `yaml:"log_level,omitempty" envconfig:"LOG_LEVEL"`
}

// ViewportConfig is the emulated device used for captures
type ViewportConfig struct {
	Width  int64   `yaml:"width,omitempty" envconfig:"WIDTH"`
	Height int64   `yaml:"height,omitempty" envconfig:"HEIGHT"`
	Scale  float64 `yaml:"scale,omitempty" envconfig:"SCALE"`
}

// ServerConfig holds settings for the HTTP boundary
type ServerConfig struct {
	Listen          string        `yaml:"listen,omitempty" envconfig:"LISTEN"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" envconfig:"SHUTDOWN_TIMEOUT"`
}

// EnvPrefix namespaces every environment override
const EnvPrefix = "SURFVIEW"

// Defaults
const (
	DefaultHarvestTimeout        = 5 * time.Second
	DefaultCaptureTimeout        = 20 * time.Second
	DefaultRequestTimeout        = 45 * time.Second
	DefaultIdleWindow            = 500 * time.Millisecond
	DefaultIdleMaxInflight       = 2
	DefaultMaxConcurrentSessions = 2
	DefaultLaunchesPerSecond     = 2.0
	DefaultLaunchBurst           = 2
	DefaultMaxRendersPerSite     = 1
	DefaultCookieScope           = "naive"
	DefaultViewportWidth         = 1280
	DefaultViewportHeight        = 900
	DefaultViewportScale         = 2.0
	DefaultListen                = "127.0.0.1:8787"
	DefaultShutdownTimeout       = 10 * time.Second
	DefaultLogLevel              = "info"
)

// EffectiveIdleMaxInflight resolves the optional threshold
func (c *AppConfig) EffectiveIdleMaxInflight() int {
	if c.IdleMaxInflight == nil {
		return DefaultIdleMaxInflight
	}
	return *c.IdleMaxInflight
}
