// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and LIFESPAN_* env vars.
// - Errors returned by Load and Validate wrap this package's sentinels.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json or tint.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TrustProxy makes login throttling key on the last X-Forwarded-For
	// entry. Enable it only behind a proxy that appends that header.
	TrustProxy bool `koanf:"trust_proxy"`

	// RuleSet names the scoring rule set active at startup.
	RuleSet string `koanf:"ruleset"`

	// RulesFile optionally points at a YAML document of extra rule sets.
	// The file is watched and reloaded on change.
	RulesFile string `koanf:"rules_file"`

	// DatabaseURL selects the postgres store; empty keeps everything in memory.
	DatabaseURL string `koanf:"database_url"`

	// Redis backs sessions, login throttling and reset codes when RedisAddr is set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	SessionTTLMinutes   int `koanf:"session_ttl_minutes"`
	ResetCodeTTLMinutes int `koanf:"reset_code_ttl_minutes"`

	// Login failures are limited per email and client, and per email alone.
	LoginMaxAttempts        int `koanf:"login_max_attempts"`
	LoginAccountMaxAttempts int `koanf:"login_account_max_attempts"`
	LoginWindowSeconds      int `koanf:"login_window_seconds"`

	// SMTP delivery; an empty host disables email.
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPFrom     string `koanf:"smtp_from"`

	// KafkaBrokers is a comma separated broker list; empty disables events.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// Admin account provisioned at startup when both email and password are set.
	AdminEmail    string `koanf:"admin_email"`
	AdminName     string `koanf:"admin_name"`
	AdminPassword string `koanf:"admin_password"`

	// QueueSize bounds the in-memory notification queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of notification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BcryptCost is the password hashing cost.
	BcryptCost int `koanf:"bcrypt_cost"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		RuleSet:                 "standard",
		SessionTTLMinutes:       24 * 60,
		LoginMaxAttempts:        5,
		LoginAccountMaxAttempts: 20,
		LoginWindowSeconds:      300,
		ResetCodeTTLMinutes:     15,
		SMTPPort:                587,
		KafkaTopic:              "lifespan.predictions",
		AdminName:               "Administrator",
		QueueSize:               1_024,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              10_000,
		BcryptCost:              12,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.RuleSet) == "" {
		return fmt.Errorf("%w: ruleset must not be empty", ErrInvalidConfig)
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("%w: admin_email and admin_password must be set together", ErrInvalidConfig)
	}
	if c.SessionTTLMinutes <= 0 || c.ResetCodeTTLMinutes <= 0 {
		return fmt.Errorf("%w: session and reset code TTLs must be positive", ErrInvalidConfig)
	}
	if c.LoginMaxAttempts <= 0 || c.LoginAccountMaxAttempts <= 0 || c.LoginWindowSeconds <= 0 {
		return fmt.Errorf("%w: login throttling needs positive attempts and window", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 || c.WorkerCount <= 0 {
		return fmt.Errorf("%w: queue_size and worker_count must be positive", ErrInvalidConfig)
	}
	return nil
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// LoginWindow returns the login throttling window.
func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowSeconds) * time.Second
}

// ResetCodeTTL returns how long a password reset code stays valid.
func (c *Config) ResetCodeTTL() time.Duration {
	return time.Duration(c.ResetCodeTTLMinutes) * time.Minute
}

// Brokers splits KafkaBrokers into addresses.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
