package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Site modes
const (
	ModeLive        = "live"
	ModeComingSoon  = "coming_soon"
	ModeMaintenance = "maintenance"
)

// Constants
const (
	MinNonceSecretLen = 16
	StaticPrefix      = "/static/"
)

// Config holds everything the server reads from the environment
type Config struct {
	Addr        string `env:"RECRUITPRO_ADDR" envDefault:":8080"`
	DBPath      string `env:"RECRUITPRO_DB_PATH" envDefault:"recruitpro.db"`
	ContentFile string `env:"RECRUITPRO_CONTENT_FILE" envDefault:"content.yaml"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	NonceSecret string        `env:"RECRUITPRO_NONCE_SECRET"`
	NonceTTL    time.Duration `env:"RECRUITPRO_NONCE_TTL" envDefault:"12h"`

	SiteMode         string `env:"RECRUITPRO_SITE_MODE" envDefault:"live"`
	LaunchAt         string `env:"RECRUITPRO_LAUNCH_AT"`
	MaintenanceUntil string `env:"RECRUITPRO_MAINTENANCE_UNTIL"`

	FeedURLs        []string      `env:"RECRUITPRO_FEED_URLS" envSeparator:","`
	FeedTTL         time.Duration `env:"RECRUITPRO_FEED_TTL" envDefault:"1h"`
	FeedItems       int           `env:"RECRUITPRO_FEED_ITEMS" envDefault:"5"`
	FeedWords       int           `env:"RECRUITPRO_FEED_WORDS" envDefault:"30"`
	FeedTimeout     time.Duration `env:"RECRUITPRO_FEED_TIMEOUT" envDefault:"10s"`
	FeedRefreshSpec string        `env:"RECRUITPRO_FEED_REFRESH_SPEC" envDefault:"@every 30m"`

	SMTPHost     string `env:"RECRUITPRO_SMTP_HOST"`
	SMTPPort     int    `env:"RECRUITPRO_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"RECRUITPRO_SMTP_USER"`
	SMTPPassword string `env:"RECRUITPRO_SMTP_PASSWORD"`
	MailFrom     string `env:"RECRUITPRO_MAIL_FROM" envDefault:"no-reply@localhost"`
	AdminEmail   string `env:"RECRUITPRO_ADMIN_EMAIL"`

	OTelEndpoint string `env:"RECRUITPRO_OTEL_ENDPOINT"`

	launchTime      time.Time
	maintenanceTime time.Time
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.NonceSecret = strings.TrimSpace(c.NonceSecret)
	if len(c.NonceSecret) < MinNonceSecretLen {
		return fmt.Errorf("RECRUITPRO_NONCE_SECRET must be at least %d bytes", MinNonceSecretLen)
	}
	if c.NonceTTL <= 0 {
		return fmt.Errorf("RECRUITPRO_NONCE_TTL must be positive")
	}

	c.SiteMode = strings.ToLower(strings.TrimSpace(c.SiteMode))
	switch c.SiteMode {
	case ModeLive, ModeComingSoon, ModeMaintenance:
	default:
		return fmt.Errorf("RECRUITPRO_SITE_MODE %q is not one of live, coming_soon, maintenance", c.SiteMode)
	}

	var err error
	if c.launchTime, err = parseTime("RECRUITPRO_LAUNCH_AT", c.LaunchAt); err != nil {
		return err
	}
	if c.maintenanceTime, err = parseTime("RECRUITPRO_MAINTENANCE_UNTIL", c.MaintenanceUntil); err != nil {
		return err
	}

	urls := make([]string, 0, len(c.FeedURLs))
	for _, raw := range c.FeedURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("RECRUITPRO_FEED_URLS: invalid feed url %q", raw)
		}
		urls = append(urls, raw)
	}
	c.FeedURLs = urls

	if c.FeedTTL <= 0 {
		return fmt.Errorf("RECRUITPRO_FEED_TTL must be positive")
	}
	if c.FeedItems <= 0 {
		return fmt.Errorf("RECRUITPRO_FEED_ITEMS must be positive")
	}
	if c.FeedWords <= 0 {
		return fmt.Errorf("RECRUITPRO_FEED_WORDS must be positive")
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("RECRUITPRO_FEED_TIMEOUT must be positive")
	}
	return nil
}

// LaunchTime returns the coming-soon countdown target, zero when unset
func (c Config) LaunchTime() time.Time {
	return c.launchTime
}

// MaintenanceEndTime returns the estimated end of maintenance, zero when unset
func (c Config) MaintenanceEndTime() time.Time {
	return c.maintenanceTime
}

// SMTPConfigured reports whether outgoing mail should go through SMTP
func (c Config) SMTPConfigured() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

func parseTime(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC 3339: %w", name, err)
	}
	return t, nil
}
