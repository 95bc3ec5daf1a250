// Package config loads and validates the possync YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/njoerd114/possync/internal/model"
)

// TokenEnvVar is consulted when remote.api_token is empty. A .env file next
// to the working directory may supply it.
const TokenEnvVar = "POSSYNC_API_TOKEN"

const (
	defaultPageSize        = 250
	maxPageSize            = 250
	defaultBatchSize       = 50
	defaultTimeout         = 30 * time.Second
	defaultTick            = time.Minute
	defaultIntervalMinutes = 30
	defaultListen          = "127.0.0.1:8085"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	Remote RemoteConfig `yaml:"remote"`

	// DatabasePath is the SQLite file holding the local datastore. Defaults
	// to ~/.local/share/possync/possync.db.
	DatabasePath string `yaml:"database_path,omitempty"`

	// BatchSize is the number of records written concurrently per batch.
	BatchSize int `yaml:"batch_size,omitempty"`

	Scheduler SchedulerConfig `yaml:"scheduler"`

	// SignificantFields overrides, per entity type, the fields compared even
	// when the remote timestamp is unchanged.
	// Example: {"customers": ["name", "email"]}
	SignificantFields map[string][]string `yaml:"significant_fields,omitempty"`

	HTTP HTTPConfig `yaml:"http"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// RemoteConfig describes the point-of-sale API.
type RemoteConfig struct {
	// BaseURL is the API root, e.g. "https://api.pos.example.com/v1.0".
	BaseURL string `yaml:"base_url"`

	// APIToken is sent as a bearer token. Falls back to $POSSYNC_API_TOKEN.
	APIToken string `yaml:"api_token,omitempty"`

	// PageSize is the limit requested per page. Default and maximum 250.
	PageSize int `yaml:"page_size,omitempty"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SchedulerConfig controls the recurring due-check.
type SchedulerConfig struct {
	// Tick is how often the scheduler checks whether a sync is due. It is
	// independent of the sync interval. Minimum 10s, maximum 10m.
	Tick time.Duration `yaml:"tick,omitempty"`

	// Enabled and IntervalMinutes seed the settings document the first time
	// the daemon starts. Afterwards the stored settings win.
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes,omitempty"`
}

// HTTPConfig controls the operator API.
type HTTPConfig struct {
	// Listen is the host:port of the operator API. Set to "off" to disable.
	Listen string `yaml:"listen,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "possync".
	ServiceName string `yaml:"service_name,omitempty"`

	// SampleRatio is the fraction of sync traces kept, 0 < r <= 1. Defaults to 1.
	SampleRatio float64 `yaml:"sample_ratio,omitempty"`

	// Headers are sent as gRPC metadata on every OTLP request, e.g.
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/possync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "possync", "config.yaml"), nil
}

// DefaultDBPath returns ~/.local/share/possync/possync.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "possync", "possync.db"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if cfg.Remote.APIToken == "" {
		// A missing .env is fine; the variable may come from the environment.
		_ = godotenv.Load()
		cfg.Remote.APIToken = strings.TrimSpace(os.Getenv(TokenEnvVar))
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Write serialises the config to path as YAML, creating parent directories.
// The file is readable only by the owner because it may hold the API token.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// SignificantFieldPolicy converts SignificantFields into typed keys. Entity
// types that are not configured are absent from the result.
func (c *Config) SignificantFieldPolicy() (map[model.EntityType][]model.Field, error) {
	if len(c.SignificantFields) == 0 {
		return nil, nil
	}
	policy := make(map[model.EntityType][]model.Field, len(c.SignificantFields))
	for name, fields := range c.SignificantFields {
		entity, err := model.ParseEntityType(name)
		if err != nil {
			return nil, fmt.Errorf("significant_fields: %w", err)
		}
		typed := make([]model.Field, 0, len(fields))
		for _, f := range fields {
			field, err := model.ParseField(f)
			if err != nil {
				return nil, fmt.Errorf("significant_fields[%s]: %w", name, err)
			}
			typed = append(typed, field)
		}
		policy[entity] = typed
	}
	return policy, nil
}

// HTTPEnabled reports whether the operator API should be started.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Listen != "off"
}

// validate checks that all required fields are present and fills defaults.
func (c *Config) validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	u, err := url.ParseRequestURI(c.Remote.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("remote.base_url %q must be a valid http or https URL", c.Remote.BaseURL)
	}
	if c.Remote.APIToken == "" {
		return fmt.Errorf("remote.api_token is required (or set %s)", TokenEnvVar)
	}

	if c.Remote.PageSize == 0 {
		c.Remote.PageSize = defaultPageSize
	}
	if c.Remote.PageSize < 1 || c.Remote.PageSize > maxPageSize {
		return fmt.Errorf("remote.page_size %d must be between 1 and %d", c.Remote.PageSize, maxPageSize)
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = defaultTimeout
	}
	if c.Remote.Timeout < time.Second {
		return fmt.Errorf("remote.timeout %v is too short (minimum 1s)", c.Remote.Timeout)
	}

	if c.DatabasePath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return err
		}
		c.DatabasePath = p
	}

	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchSize < 1 || c.BatchSize > 500 {
		return fmt.Errorf("batch_size %d must be between 1 and 500", c.BatchSize)
	}

	if c.Scheduler.Tick == 0 {
		c.Scheduler.Tick = defaultTick
	}
	if c.Scheduler.Tick < 10*time.Second {
		return fmt.Errorf("scheduler.tick %v is too short (minimum 10s)", c.Scheduler.Tick)
	}
	if c.Scheduler.Tick > 10*time.Minute {
		return fmt.Errorf("scheduler.tick %v is too long (maximum 10m)", c.Scheduler.Tick)
	}
	if c.Scheduler.IntervalMinutes == 0 {
		c.Scheduler.IntervalMinutes = defaultIntervalMinutes
	}
	if c.Scheduler.IntervalMinutes < 1 || c.Scheduler.IntervalMinutes > 1440 {
		return fmt.Errorf("scheduler.interval_minutes %d must be between 1 and 1440", c.Scheduler.IntervalMinutes)
	}

	if _, err := c.SignificantFieldPolicy(); err != nil {
		return err
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultListen
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			return fmt.Errorf("telemetry.sample_ratio %v must be between 0 and 1", c.Telemetry.SampleRatio)
		}
	}

	return nil
}
