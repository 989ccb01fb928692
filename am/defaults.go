package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.status_push_seconds", DefaultStatusPushSeconds)

	v.SetDefault("auth.issuer", "sakura")
	v.SetDefault("auth.token_hours", DefaultTokenHours)

	v.SetDefault("sakura.poll_interval_ms", DefaultPollIntervalMS)
	v.SetDefault("sakura.failure_backoff_ms", DefaultFailureBackoffMS)
	v.SetDefault("sakura.max_failure_backoff_ms", DefaultMaxFailureBackoffMS)
	v.SetDefault("sakura.stop_timeout_seconds", DefaultStopTimeoutSeconds)
	v.SetDefault("sakura.dial_timeout_seconds", DefaultDialTimeoutSeconds)
	v.SetDefault("sakura.max_queued_jobs", DefaultMaxQueuedJobs) // queue ceiling
	v.SetDefault("sakura.min_account_age_hours", DefaultMinAccountAgeHours)
	v.SetDefault("sakura.submit_per_minute", 6)
	v.SetDefault("sakura.recover_orphans", true)
}

// BindSensitiveEnvVars explicitly binds secrets and paths to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.jwt_secret", "SAKURA_JWT_SECRET")
	_ = v.BindEnv("database.path", "SAKURA_DATABASE_PATH")
}

// DefaultConfig returns the configuration SetDefaults describes, as a struct.
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults are static; unmarshal cannot fail on them
		panic(err)
	}
	return cfg
}
