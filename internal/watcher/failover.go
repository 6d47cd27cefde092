// Package watcher - failover.go tracks the active upstream pool.
package watcher

// FailoverEvent describes one observed pool change.
type FailoverEvent struct {
	From string
	To   string
}

// FailoverDetector remembers the last observed pool identity and flags
// changes. The first observation establishes the baseline and is never
// an event.
type FailoverDetector struct {
	lastPool string
}

// NewFailoverDetector creates a detector with no baseline.
func NewFailoverDetector() *FailoverDetector {
	return &FailoverDetector{}
}

// Observe records the pool seen on the current line and reports whether
// the identity changed. The recorded pool is updated unconditionally
// before any alert gating happens downstream - suppressing an alert must
// never leave the detector tracking a stale pool.
func (d *FailoverDetector) Observe(pool string) (FailoverEvent, bool) {
	if d.lastPool == "" {
		d.lastPool = pool
		return FailoverEvent{}, false
	}
	if pool == d.lastPool {
		return FailoverEvent{}, false
	}
	event := FailoverEvent{From: d.lastPool, To: pool}
	d.lastPool = pool
	return event, true
}

// Current returns the currently tracked pool, or "" before the baseline.
func (d *FailoverDetector) Current() string { return d.lastPool }
