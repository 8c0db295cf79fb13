// Package config provides configuration file support for ppecheck.
//
// Values are read from .ppecheck/config.yaml and then overridden by
// PPECHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/ppecheck/ppecheck/pkg/fsutil"
)

// Dir is the workspace metadata directory.
const Dir = ".ppecheck"

// FileName is the config file inside Dir.
const FileName = "config.yaml"

// Config represents the ppecheck configuration.
type Config struct {
	// Catalog is a YAML catalog path; empty selects the built-in catalog.
	Catalog           string           `json:"catalog,omitempty" yaml:"catalog,omitempty" env:"PPECHECK_CATALOG"`
	Inspector         string           `json:"inspector,omitempty" yaml:"inspector,omitempty" env:"PPECHECK_INSPECTOR"`
	Logging           LoggingConfig    `json:"logging" yaml:"logging"`
	Submission        SubmissionConfig `json:"submission" yaml:"submission"`
	Location          LocationConfig   `json:"location" yaml:"location"`
	Webhooks          []WebhookConfig  `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	WebhookMaxRetries int              `json:"webhook_max_retries" yaml:"webhook_max_retries" env:"PPECHECK_WEBHOOK_MAX_RETRIES"`
	WebhookRetryDelay time.Duration    `json:"webhook_retry_delay" yaml:"webhook_retry_delay" env:"PPECHECK_WEBHOOK_RETRY_DELAY"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"PPECHECK_LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"PPECHECK_LOG_FORMAT"` // json, text
}

// SubmissionConfig controls how sessions are finalized.
type SubmissionConfig struct {
	// LockAfterSubmit makes submitted drafts read-only.
	LockAfterSubmit bool `json:"lock_after_submit" yaml:"lock_after_submit" env:"PPECHECK_LOCK_AFTER_SUBMIT"`
	CellLevel       int  `json:"cell_level" yaml:"cell_level" env:"PPECHECK_CELL_LEVEL"`
}

// LocationConfig bounds accepted coordinate fixes.
type LocationConfig struct {
	MaxAccuracyMeters float64 `json:"max_accuracy_meters" yaml:"max_accuracy_meters" env:"PPECHECK_MAX_ACCURACY_METERS"`
}

// WebhookConfig is one record publishing endpoint.
type WebhookConfig struct {
	URL     string   `json:"url" yaml:"url"`
	Secret  string   `json:"secret,omitempty" yaml:"secret,omitempty"`
	Events  []string `json:"events,omitempty" yaml:"events,omitempty"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Submission: SubmissionConfig{
			LockAfterSubmit: true,
			CellLevel:       13,
		},
		Location: LocationConfig{
			MaxAccuracyMeters: 100,
		},
		WebhookMaxRetries: 3,
		WebhookRetryDelay: 5 * time.Second,
	}
}

// Path returns the config file location for a workspace root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Load loads configuration from .ppecheck/config.yaml and the environment.
// A missing file yields the defaults plus environment overrides.
func Load(root string) (*Config, error) {
	cfg, err := readFile(root)
	if err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// LoadFile loads the file values without environment overrides, for
// editing and saving back.
func LoadFile(root string) (*Config, error) {
	cfg, err := readFile(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func readFile(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(root))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// Save writes configuration to .ppecheck/config.yaml.
func Save(root string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fsutil.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Redacted returns a copy with webhook secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Webhooks = make([]WebhookConfig, len(c.Webhooks))
	for i, h := range c.Webhooks {
		if h.Secret != "" {
			h.Secret = "********"
		}
		out.Webhooks[i] = h
	}
	return &out
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format: must be json or text, got %q", c.Logging.Format)
	}
	if c.Submission.CellLevel < 0 || c.Submission.CellLevel > 30 {
		return fmt.Errorf("submission.cell_level: must be within 0..30, got %d", c.Submission.CellLevel)
	}
	if c.Location.MaxAccuracyMeters < 0 {
		return fmt.Errorf("location.max_accuracy_meters: must not be negative")
	}
	if c.WebhookMaxRetries < 0 {
		return fmt.Errorf("webhook_max_retries: must not be negative")
	}
	if c.WebhookRetryDelay < 0 {
		return fmt.Errorf("webhook_retry_delay: must not be negative")
	}
	for i, h := range c.Webhooks {
		u, err := url.Parse(h.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhooks[%d].url: must be an http(s) URL, got %q", i, h.URL)
		}
	}
	return nil
}

// Keys lists the scalar keys accepted by Get and Set.
var Keys = []string{
	"catalog",
	"inspector",
	"logging.level",
	"logging.format",
	"submission.lock_after_submit",
	"submission.cell_level",
	"location.max_accuracy_meters",
	"webhook_max_retries",
	"webhook_retry_delay",
}

// Get returns the string form of a scalar key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "catalog":
		return c.Catalog, nil
	case "inspector":
		return c.Inspector, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "submission.lock_after_submit":
		return strconv.FormatBool(c.Submission.LockAfterSubmit), nil
	case "submission.cell_level":
		return strconv.Itoa(c.Submission.CellLevel), nil
	case "location.max_accuracy_meters":
		return strconv.FormatFloat(c.Location.MaxAccuracyMeters, 'g', -1, 64), nil
	case "webhook_max_retries":
		return strconv.Itoa(c.WebhookMaxRetries), nil
	case "webhook_retry_delay":
		return c.WebhookRetryDelay.String(), nil
	}
	return "", unknownKey(key)
}

// Set parses value into a scalar key and re-validates the config. On
// error the config is left unchanged.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "catalog":
		next.Catalog = value
	case "inspector":
		next.Inspector = value
	case "logging.level":
		next.Logging.Level = value
	case "logging.format":
		next.Logging.Format = value
	case "submission.lock_after_submit":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.Submission.LockAfterSubmit = b
	case "submission.cell_level":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.Submission.CellLevel = n
	case "location.max_accuracy_meters":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.Location.MaxAccuracyMeters = f
	case "webhook_max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.WebhookMaxRetries = n
	case "webhook_retry_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.WebhookRetryDelay = d
	default:
		return unknownKey(key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
}
