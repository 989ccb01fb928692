package am

import "time"

// Config represents the Sakura scheduler configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Auth     AuthConfig     `mapstructure:"auth" toml:"auth"`
	Sakura   SakuraConfig   `mapstructure:"sakura" toml:"sakura"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port              int      `mapstructure:"port" toml:"port"`
	AllowedOrigins    []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	StatusPushSeconds int      `mapstructure:"status_push_seconds" toml:"status_push_seconds"` // status websocket push interval
}

// AuthConfig configures token verification
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" toml:"jwt_secret"`
	Issuer     string `mapstructure:"issuer" toml:"issuer"`
	TokenHours int    `mapstructure:"token_hours" toml:"token_hours"`
}

// SakuraConfig configures the job queue and the per-worker dispatchers
type SakuraConfig struct {
	PollIntervalMS      int  `mapstructure:"poll_interval_ms" toml:"poll_interval_ms"`             // idle wait between claim attempts
	FailureBackoffMS    int  `mapstructure:"failure_backoff_ms" toml:"failure_backoff_ms"`         // first wait after a failed execution
	MaxFailureBackoffMS int  `mapstructure:"max_failure_backoff_ms" toml:"max_failure_backoff_ms"` // cap for the doubling backoff
	StopTimeoutSeconds  int  `mapstructure:"stop_timeout_seconds" toml:"stop_timeout_seconds"`
	DialTimeoutSeconds  int  `mapstructure:"dial_timeout_seconds" toml:"dial_timeout_seconds"`
	MaxQueuedJobs       int  `mapstructure:"max_queued_jobs" toml:"max_queued_jobs"`
	MinAccountAgeHours  int  `mapstructure:"min_account_age_hours" toml:"min_account_age_hours"`
	SubmitPerMinute     int  `mapstructure:"submit_per_minute" toml:"submit_per_minute"` // 0 disables the throttle
	RecoverOrphans      bool `mapstructure:"recover_orphans" toml:"recover_orphans"`     // release assignments left by a previous process
}

// Defaults shared by SetDefaults and the accessors below
const (
	DefaultServerPort          = 8990
	DefaultDatabasePath        = "sakura.db"
	DefaultPollIntervalMS      = 2000
	DefaultFailureBackoffMS    = 3000
	DefaultMaxFailureBackoffMS = 60000
	DefaultStopTimeoutSeconds  = 30
	DefaultDialTimeoutSeconds  = 10
	DefaultMaxQueuedJobs       = 150
	DefaultMinAccountAgeHours  = 7 * 24
	DefaultTokenHours          = 24 * 30
	DefaultStatusPushSeconds   = 2
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// PollInterval returns the dispatcher idle wait
func (c SakuraConfig) PollInterval() time.Duration {
	return millisOr(c.PollIntervalMS, DefaultPollIntervalMS)
}

// FailureBackoff returns the first wait after a failed execution
func (c SakuraConfig) FailureBackoff() time.Duration {
	return millisOr(c.FailureBackoffMS, DefaultFailureBackoffMS)
}

// MaxFailureBackoff returns the cap for consecutive failure backoff
func (c SakuraConfig) MaxFailureBackoff() time.Duration {
	return millisOr(c.MaxFailureBackoffMS, DefaultMaxFailureBackoffMS)
}

// StopTimeout bounds how long stopping a worker waits for its dispatcher
func (c SakuraConfig) StopTimeout() time.Duration {
	if c.StopTimeoutSeconds <= 0 {
		return DefaultStopTimeoutSeconds * time.Second
	}
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// DialTimeout bounds the websocket handshake with a worker
func (c SakuraConfig) DialTimeout() time.Duration {
	if c.DialTimeoutSeconds <= 0 {
		return DefaultDialTimeoutSeconds * time.Second
	}
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// MinAccountAge returns the minimum account age for submitting jobs
func (c SakuraConfig) MinAccountAge() time.Duration {
	return time.Duration(c.MinAccountAgeHours) * time.Hour
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetServerPort returns the configured server port
func (c *Config) GetServerPort() int {
	if c.Server.Port == 0 {
		return DefaultServerPort
	}
	return c.Server.Port
}

// TokenTTL returns the lifetime of issued tokens
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenHours <= 0 {
		return DefaultTokenHours * time.Hour
	}
	return time.Duration(c.Auth.TokenHours) * time.Hour
}

// StatusPushInterval returns the status websocket push interval
func (c *Config) StatusPushInterval() time.Duration {
	if c.Server.StatusPushSeconds <= 0 {
		return DefaultStatusPushSeconds * time.Second
	}
	return time.Duration(c.Server.StatusPushSeconds) * time.Second
}

func millisOr(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}
