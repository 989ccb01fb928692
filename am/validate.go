package am

import "github.com/Somnusochi/auto-novel/errors"

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be within 1-65535, got %d", c.Server.Port)
	}

	// Zero means "use the default" for these knobs, negative is a typo
	durations := map[string]int{
		"sakura.poll_interval_ms":       c.Sakura.PollIntervalMS,
		"sakura.failure_backoff_ms":     c.Sakura.FailureBackoffMS,
		"sakura.max_failure_backoff_ms": c.Sakura.MaxFailureBackoffMS,
		"sakura.stop_timeout_seconds":   c.Sakura.StopTimeoutSeconds,
		"sakura.dial_timeout_seconds":   c.Sakura.DialTimeoutSeconds,
		"sakura.submit_per_minute":      c.Sakura.SubmitPerMinute,
		"sakura.min_account_age_hours":  c.Sakura.MinAccountAgeHours,
		"server.status_push_seconds":    c.Server.StatusPushSeconds,
	}
	for key, value := range durations {
		if value < 0 {
			return errors.Newf("%s must be >= 0, got %d", key, value)
		}
	}

	if c.Sakura.MaxQueuedJobs <= 0 {
		return errors.Newf("sakura.max_queued_jobs must be > 0, got %d", c.Sakura.MaxQueuedJobs)
	}

	if c.Sakura.MaxFailureBackoffMS > 0 && c.Sakura.FailureBackoffMS > c.Sakura.MaxFailureBackoffMS {
		return errors.Newf("sakura.failure_backoff_ms (%d) exceeds sakura.max_failure_backoff_ms (%d)",
			c.Sakura.FailureBackoffMS, c.Sakura.MaxFailureBackoffMS)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return errors.WithHint(
			errors.New("auth.jwt_secret is too short"),
			"use at least 16 characters, e.g. the output of `openssl rand -hex 32`")
	}

	return nil
}
