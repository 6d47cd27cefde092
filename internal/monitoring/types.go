// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both watcher/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - AlertKind:   Identifies which anomaly produced an alert
//   - AlertEvent:  Audit record for each alert decision
//   - Config types: LoggerConfig, AuditConfig
package monitoring

import "time"

// =============================================================================
// ALERT KINDS - Used by coordinator, cooldown gate, notifier and audit trail
// =============================================================================

// AlertKind identifies which anomaly produced an alert.
type AlertKind string

const (
	KindStartup   AlertKind = "startup"
	KindFailover  AlertKind = "failover"
	KindErrorRate AlertKind = "error-rate"
)

// =============================================================================
// EVENT TYPES - Structured data for audit recording
// =============================================================================

// AlertEvent captures one alert decision, whether or not it fired.
type AlertEvent struct {
	AlertID    string    `json:"alert_id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       AlertKind `json:"kind"`
	Message    string    `json:"message"`
	Pool       string    `json:"pool,omitempty"`
	Release    string    `json:"release,omitempty"`
	ErrorRate  float64   `json:"error_rate,omitempty"`
	Fired      bool      `json:"fired"`
	Suppressed bool      `json:"suppressed"`
	Delivered  bool      `json:"delivered"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, or empty for auto-detect
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AuditConfig contains alert audit trail configuration.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}
