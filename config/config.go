// Package config loads duekitd settings from DUEKIT_* environment variables,
// with command-line flags taking precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Config is the complete daemon configuration. Empty backend addresses mean
// the in-memory implementation is used.
type Config struct {
	HTTPAddr string `env:"DUEKIT_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"DUEKIT_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"DUEKIT_LOG_JSON"`

	RedisAddr     string `env:"DUEKIT_REDIS_ADDR"`
	RedisPassword string `env:"DUEKIT_REDIS_PASSWORD"`
	RedisDB       int    `env:"DUEKIT_REDIS_DB"`
	DatabaseURL   string `env:"DUEKIT_DATABASE_URL"`
	Migrate       bool   `env:"DUEKIT_MIGRATE" envDefault:"true"`

	GrantsFile string `env:"DUEKIT_GRANTS_FILE"`
	TasksFile  string `env:"DUEKIT_TASKS_FILE"`

	Schedule   string `env:"DUEKIT_SCHEDULE" envDefault:"0 * * * *"`
	Thresholds []int  `env:"DUEKIT_THRESHOLDS" envDefault:"7,3,1" envSeparator:","`
	Timezone   string `env:"DUEKIT_TIMEZONE" envDefault:"UTC"`

	SessionIssuer  string `env:"DUEKIT_SESSION_ISSUER" envDefault:"duekit"`
	SessionKeysDir string `env:"DUEKIT_SESSION_KEYS_DIR"`

	EmailRateLimit  int           `env:"DUEKIT_EMAIL_RATE_LIMIT" envDefault:"10"`
	EmailRateWindow time.Duration `env:"DUEKIT_EMAIL_RATE_WINDOW" envDefault:"1h"`
	QueueWorkers    int           `env:"DUEKIT_QUEUE_WORKERS" envDefault:"4"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment, then applies args as flag overrides.
func Load(args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs := pflag.NewFlagSet("duekitd", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AddFlags registers one flag per setting, defaulting to the current values.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "emit JSON logs")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for ledger, presence and rate limits")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "Postgres URL for ledger, tasks and delivery queue")
	fs.BoolVar(&c.Migrate, "migrate", c.Migrate, "apply Postgres migrations at startup")
	fs.StringVar(&c.GrantsFile, "grants-file", c.GrantsFile, "YAML or JSON role grant table")
	fs.StringVar(&c.TasksFile, "tasks-file", c.TasksFile, "YAML or JSON task list to watch")
	fs.StringVar(&c.Schedule, "schedule", c.Schedule, "cron spec for deadline passes")
	fs.IntSliceVar(&c.Thresholds, "thresholds", c.Thresholds, "days-remaining values that trigger an alert")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "IANA zone for the scheduler and civil days")
	fs.StringVar(&c.SessionIssuer, "session-issuer", c.SessionIssuer, "session token issuer")
	fs.StringVar(&c.SessionKeysDir, "session-keys-dir", c.SessionKeysDir, "directory holding the session signing key")
	fs.IntVar(&c.EmailRateLimit, "email-rate-limit", c.EmailRateLimit, "emails per recipient per window")
	fs.DurationVar(&c.EmailRateWindow, "email-rate-window", c.EmailRateWindow, "email rate-limit window")
	fs.IntVar(&c.QueueWorkers, "queue-workers", c.QueueWorkers, "delivery queue concurrency")
}

// Validate checks values that would otherwise fail deep inside startup.
func (c Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if len(c.Thresholds) == 0 {
		errs = append(errs, errors.New("at least one threshold is required"))
	}
	for _, d := range c.Thresholds {
		if d < 0 {
			errs = append(errs, fmt.Errorf("threshold %d is negative", d))
		}
	}
	if c.EmailRateLimit <= 0 || c.EmailRateWindow <= 0 {
		errs = append(errs, errors.New("email rate limit and window must be positive"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Level returns the parsed log level, info when unparsable.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
