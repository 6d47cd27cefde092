// Package config loads and validates the poolwatch configuration.
//
// DESIGN: Configuration comes from a YAML file with ${VAR:-default} env
// expansion, falling back to built-in defaults when no file is given.
// Env overrides (ALERT_WEBHOOK_URL, POOLWATCH_AUDIT_LOG) apply last so
// deployment tooling can redirect the channel without editing files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// Config is the root configuration for poolwatch.
type Config struct {
	Watch      WatchConfig      `yaml:"watch"`      // Log source and detection thresholds
	Alert      AlertConfig      `yaml:"alert"`      // Webhook channel settings
	Monitoring MonitoringConfig `yaml:"monitoring"` // Logging and audit settings
}

// WatchConfig contains log source and detection settings.
type WatchConfig struct {
	AccessLog          string        `yaml:"access_log"`           // Path of the access log to follow
	ErrorRateThreshold float64       `yaml:"error_rate_threshold"` // Percent of 5xx in window that triggers an alert
	WindowSize         int           `yaml:"window_size"`          // Status samples kept in the rolling window
	Cooldown           time.Duration `yaml:"cooldown"`             // Minimum gap between alerts of one kind
	PollInterval       time.Duration `yaml:"poll_interval"`        // Tailer fallback poll cadence
}

// AlertConfig contains webhook channel settings.
type AlertConfig struct {
	WebhookURL string        `yaml:"webhook_url"` // Optional; empty means log-only mode
	Timeout    time.Duration `yaml:"timeout"`     // Bound on one delivery attempt
}

// MonitoringConfig contains logging and audit settings.
type MonitoringConfig struct {
	Logging monitoring.LoggerConfig `yaml:"logging"`
	Audit   monitoring.AuditConfig  `yaml:"audit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			ErrorRateThreshold: 2,
			WindowSize:         200,
			Cooldown:           300 * time.Second,
			PollInterval:       time.Second,
		},
		Alert: AlertConfig{
			Timeout: 10 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Logging: monitoring.LoggerConfig{Level: "info"},
		},
	}
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// This allows supervisors to redirect the channel and audit paths without
// modifying the base config files.
func (c *Config) ApplyEnvOverrides() {
	if url := os.Getenv("ALERT_WEBHOOK_URL"); url != "" {
		c.Alert.WebhookURL = url
	}

	if path := os.Getenv("POOLWATCH_AUDIT_LOG"); path != "" {
		c.Monitoring.Audit.LogPath = path
		c.Monitoring.Audit.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Watch.AccessLog == "" {
		return fmt.Errorf("watch.access_log is required")
	}
	if c.Watch.ErrorRateThreshold < 0 || c.Watch.ErrorRateThreshold > 100 {
		return fmt.Errorf("invalid watch.error_rate_threshold: %g (must be 0-100)", c.Watch.ErrorRateThreshold)
	}
	if c.Watch.WindowSize < 1 {
		return fmt.Errorf("invalid watch.window_size: %d (must be >= 1)", c.Watch.WindowSize)
	}
	if c.Watch.Cooldown < 0 {
		return fmt.Errorf("invalid watch.cooldown: %s (must not be negative)", c.Watch.Cooldown)
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("invalid watch.poll_interval: %s (must be positive)", c.Watch.PollInterval)
	}
	if c.Alert.Timeout <= 0 {
		return fmt.Errorf("invalid alert.timeout: %s (must be positive)", c.Alert.Timeout)
	}
	return nil
}
