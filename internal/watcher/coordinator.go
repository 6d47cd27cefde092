// Package watcher - coordinator.go owns the analysis pipeline.
//
// DESIGN: One goroutine processes lines strictly in arrival order:
//
//	source -> parse -> {window, failover detector} -> cooldown gate -> notifier
//
// Window, detector and cooldown state are confined to this goroutine, so
// no locks are needed. The only blocking call is the notifier's outbound
// delivery, which is bounded by its own timeout.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poolwatch/poolwatch/internal/logparse"
	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// State is the coordinator lifecycle state.
type State string

const (
	StateAwaitingSource State = "awaiting_source"
	StateStreaming      State = "streaming"
	StateTerminated     State = "terminated"
)

// Source supplies an ordered sequence of log lines.
// Lines() is closed on end-of-stream or fatal read error; Err() reports
// the terminal error afterwards, nil for clean end-of-stream.
type Source interface {
	WaitReady(ctx context.Context) error
	Lines() <-chan string
	Err() error
}

// Notifier delivers one alert to the external channel.
// The returned bool reports acceptance, never an exceptional condition.
type Notifier interface {
	Notify(ctx context.Context, kind monitoring.AlertKind, message string) bool
}

// Options holds the detection thresholds.
type Options struct {
	ErrorRateThreshold float64       // percent, strictly-greater-than comparison
	WindowSize         int           // samples kept in the rolling window
	Cooldown           time.Duration // minimum gap between alerts of one kind
}

// Coordinator drives the watch pipeline over one log source.
type Coordinator struct {
	opts     Options
	window   *Window
	detector *FailoverDetector
	gate     *CooldownGate
	notifier Notifier
	trail    *monitoring.Trail
	logger   *monitoring.Logger

	state       State
	linesSeen   int
	recordsSeen int
	alertsFired int
	lastRelease string
	now         func() time.Time
}

// New creates a Coordinator in the AwaitingSource state.
func New(opts Options, notifier Notifier, trail *monitoring.Trail, logger *monitoring.Logger) *Coordinator {
	return &Coordinator{
		opts:     opts,
		window:   NewWindow(opts.WindowSize),
		detector: NewFailoverDetector(),
		gate:     NewCooldownGate(opts.Cooldown),
		notifier: notifier,
		trail:    trail,
		logger:   logger.With("watcher"),
		state:    StateAwaitingSource,
		now:      time.Now,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return c.state }

// WindowSnapshot returns the window contents, oldest first.
func (c *Coordinator) WindowSnapshot() []int { return c.window.Statuses() }

// CurrentPool returns the pool currently tracked by the detector.
func (c *Coordinator) CurrentPool() string { return c.detector.Current() }

// Run consumes the source until end-of-stream, fatal source error or
// context cancellation. Once streaming, a bad line or a failed delivery
// never terminates the run.
func (c *Coordinator) Run(ctx context.Context, src Source) error {
	if err := src.WaitReady(ctx); err != nil {
		c.state = StateTerminated
		return fmt.Errorf("source never became ready: %w", err)
	}

	c.state = StateStreaming
	c.logger.Info().Msg("streaming")
	c.announceStartup(ctx)

	for {
		select {
		case <-ctx.Done():
			c.terminate()
			return ctx.Err()
		case line, ok := <-src.Lines():
			if !ok {
				c.terminate()
				if err := src.Err(); err != nil {
					return fmt.Errorf("source terminated: %w", err)
				}
				return nil
			}
			c.ProcessLine(ctx, line)
		}
	}
}

// ProcessLine runs one line through the full pipeline.
func (c *Coordinator) ProcessLine(ctx context.Context, line string) {
	c.linesSeen++

	rec, ok := logparse.Parse(line)
	if !ok {
		return
	}
	c.recordsSeen++
	if rec.Release != logparse.Unknown {
		c.lastRelease = rec.Release
	}

	c.window.Record(rec.UpstreamStatus)

	if rec.Pool != logparse.Unknown {
		if event, changed := c.detector.Observe(rec.Pool); changed {
			c.fire(ctx, alert{
				kind:    monitoring.KindFailover,
				message: fmt.Sprintf("Upstream pool failover: %s -> %s (release %s)", event.From, event.To, c.lastRelease),
				pool:    event.To,
			})
		}
	}

	if rate, ok := c.window.Rate(); ok && rate > c.opts.ErrorRateThreshold {
		c.fire(ctx, alert{
			kind:    monitoring.KindErrorRate,
			message: fmt.Sprintf("Upstream error rate %.2f%% over last %d requests (threshold %g%%)", rate, c.window.Len(), c.opts.ErrorRateThreshold),
			rate:    rate,
		})
	}
}

type alert struct {
	kind    monitoring.AlertKind
	message string
	pool    string
	rate    float64
}

// fire consults the cooldown gate and, if permitted, pushes the alert
// through the notifier. Every decision lands in the audit trail.
func (c *Coordinator) fire(ctx context.Context, a alert) {
	now := c.now()
	event := monitoring.AlertEvent{
		AlertID:   uuid.NewString(),
		Timestamp: now,
		Kind:      a.kind,
		Message:   a.message,
		Pool:      a.pool,
		Release:   c.lastRelease,
		ErrorRate: a.rate,
	}

	if !c.gate.MayFire(a.kind, now) {
		event.Suppressed = true
		c.logger.Info().
			Str("kind", string(a.kind)).
			Str("message", a.message).
			Msg("alert_suppressed")
		c.trail.RecordAlert(event)
		return
	}

	// Attempt time counts against the cooldown even if delivery fails.
	c.gate.RecordFired(a.kind, now)
	c.alertsFired++

	event.Fired = true
	event.Delivered = c.notifier.Notify(ctx, a.kind, a.message)
	if !event.Delivered {
		c.logger.Warn().
			Str("kind", string(a.kind)).
			Str("message", a.message).
			Msg("alert_not_delivered")
	}
	c.trail.RecordAlert(event)
}

// announceStartup sends the one-time startup notification. It bypasses
// the cooldown gate entirely and leaves no cooldown bookkeeping behind.
func (c *Coordinator) announceStartup(ctx context.Context) {
	message := "Log watcher started"
	delivered := c.notifier.Notify(ctx, monitoring.KindStartup, message)
	c.trail.RecordAlert(monitoring.AlertEvent{
		AlertID:   uuid.NewString(),
		Timestamp: c.now(),
		Kind:      monitoring.KindStartup,
		Message:   message,
		Fired:     true,
		Delivered: delivered,
	})
}

func (c *Coordinator) terminate() {
	c.state = StateTerminated
	c.logger.Info().
		Int("lines", c.linesSeen).
		Int("records", c.recordsSeen).
		Int("alerts", c.alertsFired).
		Msg("terminated")
}
