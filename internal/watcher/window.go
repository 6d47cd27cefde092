// Package watcher - window.go holds the rolling error-rate window.
package watcher

// MinSamples is the floor below which the rolling error rate is undefined.
// With fewer admitted samples a single bad response would swing the rate
// wildly, so no rate is reported at all.
const MinSamples = 10

// Window is a fixed-capacity FIFO buffer of upstream status codes.
// Only codes > 0 are admitted; the oldest entry is evicted once full.
type Window struct {
	statuses []int
	capacity int
}

// NewWindow creates a Window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	return &Window{
		statuses: make([]int, 0, capacity),
		capacity: capacity,
	}
}

// Record admits one status code. Codes <= 0 carry no information about
// the upstream and are dropped.
func (w *Window) Record(status int) {
	if status <= 0 {
		return
	}
	if len(w.statuses) == w.capacity {
		copy(w.statuses, w.statuses[1:])
		w.statuses = w.statuses[:len(w.statuses)-1]
	}
	w.statuses = append(w.statuses, status)
}

// Rate returns the percentage of admitted samples with status >= 500.
// Returns false while fewer than MinSamples samples are present.
func (w *Window) Rate() (float64, bool) {
	total := len(w.statuses)
	if total < MinSamples {
		return 0, false
	}
	errors := 0
	for _, s := range w.statuses {
		if s >= 500 {
			errors++
		}
	}
	return float64(errors) / float64(total) * 100, true
}

// Len returns the number of admitted samples.
func (w *Window) Len() int { return len(w.statuses) }

// Statuses returns a copy of the window contents, oldest first.
func (w *Window) Statuses() []int {
	out := make([]int, len(w.statuses))
	copy(out, w.statuses)
	return out
}
