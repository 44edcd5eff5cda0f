package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the adoption service.
// Environment variables are parsed from the PUPPER_ prefix.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Store driver: postgres (durable) or memory (dev/test)
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	// Postgres Configuration
	PostgresDSN   string `envconfig:"POSTGRES_DSN" default:""`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	// Notification dispatch: webhook (email/SMS gateway) or log
	Notifier          string `envconfig:"NOTIFIER" default:"log"`
	NotifyWebhookURL  string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	NotifyFromAddress string `envconfig:"NOTIFY_FROM" default:"adoptions@pupper.example"`

	// Cross-origin policy for the browser front end. The deployed default is
	// unrestricted; operators may pin an origin.
	CORSAllowedOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`

	// When false, submissions against an already-adopted dog are rejected.
	// The source behavior accepts them (shelter review resolves duplicates),
	// so true is the default.
	AllowPostAdoptionApplications bool `envconfig:"ALLOW_POST_ADOPTION_APPLICATIONS" default:"true"`

	// Outbox worker tuning
	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxInterval  time.Duration `envconfig:"OUTBOX_INTERVAL" default:"2s"`
}

// ResolveDefaults validates driver and notifier selections.
func (c *Config) ResolveDefaults() error {
	allowedDrivers := map[string]bool{"postgres": true, "memory": true}
	if !allowedDrivers[c.StoreDriver] {
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}

	allowedNotifiers := map[string]bool{"webhook": true, "log": true}
	if !allowedNotifiers[c.Notifier] {
		return fmt.Errorf("unsupported NOTIFIER: %s", c.Notifier)
	}
	if c.Notifier == "webhook" && c.NotifyWebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFIER=webhook")
	}

	if c.OutboxBatchSize <= 0 {
		c.OutboxBatchSize = 100
	}
	if c.OutboxInterval <= 0 {
		c.OutboxInterval = 2 * time.Second
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: PUPPER_HTTP_PORT, PUPPER_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PUPPER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("notifier", cfg.Notifier).
		Int("port", cfg.HTTPPort).
		Bool("allow_post_adoption_applications", cfg.AllowPostAdoptionApplications).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config suitable for tests: memory store, log
// notifier, no migrations.
func NewForTesting() *Config {
	return &Config{
		HTTPPort:                      8080,
		StoreDriver:                   "memory",
		Notifier:                      "log",
		CORSAllowedOrigin:             "*",
		AllowPostAdoptionApplications: true,
		OutboxBatchSize:               100,
		OutboxInterval:                2 * time.Second,
	}
}
