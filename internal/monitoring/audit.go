// Package monitoring - audit.go records alert decisions to a JSONL file.
//
// DESIGN: Trail writes one JSON object per line for every alert decision,
// including alerts that were suppressed by cooldown or whose delivery failed.
// Operators retain visibility into every anomaly even when the external
// alert channel is unreachable. Events are appended immediately.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Trail handles alert audit recording to file.
type Trail struct {
	config  AuditConfig
	logPath string
	count   int
	mu      sync.Mutex
}

// NewTrail creates a new audit trail.
func NewTrail(cfg AuditConfig) (*Trail, error) {
	t := &Trail{config: cfg}

	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	t.logPath = cfg.LogPath
	// Create empty file if it doesn't exist
	if _, err := os.Stat(cfg.LogPath); os.IsNotExist(err) {
		if f, err := os.Create(cfg.LogPath); err == nil {
			f.Close()
		}
	}

	return t, nil
}

// RecordAlert appends one alert decision to the trail.
func (t *Trail) RecordAlert(event AlertEvent) {
	if t.logPath == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := appendJSONL(t.logPath, event); err != nil {
		log.Error().Err(err).Str("path", t.logPath).Msg("audit append failed")
		return
	}
	t.count++
}

// Count returns the number of events recorded so far.
func (t *Trail) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
