// Package watcher - cooldown.go suppresses repeat alerts of one kind.
package watcher

import (
	"time"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// CooldownGate tracks the last firing time per alert kind. It decides
// only whether a firing is allowed; detecting the anomaly itself is the
// caller's job.
type CooldownGate struct {
	interval  time.Duration
	lastFired map[monitoring.AlertKind]time.Time
}

// NewCooldownGate creates a gate enforcing the given minimum interval
// between firings of the same kind.
func NewCooldownGate(interval time.Duration) *CooldownGate {
	return &CooldownGate{
		interval:  interval,
		lastFired: make(map[monitoring.AlertKind]time.Time),
	}
}

// MayFire reports whether an alert of this kind is allowed at now.
func (g *CooldownGate) MayFire(kind monitoring.AlertKind, now time.Time) bool {
	last, ok := g.lastFired[kind]
	if !ok {
		return true
	}
	return now.Sub(last) >= g.interval
}

// RecordFired marks the kind as fired at now. Callers record the attempt
// time regardless of delivery outcome, so a flaky channel cannot cause
// an alert storm.
func (g *CooldownGate) RecordFired(kind monitoring.AlertKind, now time.Time) {
	g.lastFired[kind] = now
}
