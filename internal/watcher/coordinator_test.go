package watcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type notifyCall struct {
	kind    monitoring.AlertKind
	message string
}

type fakeNotifier struct {
	accept bool
	calls  []notifyCall
}

func (f *fakeNotifier) Notify(_ context.Context, kind monitoring.AlertKind, message string) bool {
	f.calls = append(f.calls, notifyCall{kind: kind, message: message})
	return f.accept
}

func (f *fakeNotifier) ofKind(kind monitoring.AlertKind) []notifyCall {
	var out []notifyCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeSource struct {
	lines chan string
	err   error
}

func (s *fakeSource) WaitReady(context.Context) error { return nil }
func (s *fakeSource) Lines() <-chan string            { return s.lines }
func (s *fakeSource) Err() error                      { return s.err }

var base = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T, accept bool) (*Coordinator, *fakeNotifier) {
	t.Helper()
	fn := &fakeNotifier{accept: accept}
	trail, err := monitoring.NewTrail(monitoring.AuditConfig{})
	require.NoError(t, err)
	logger := monitoring.New(monitoring.LoggerConfig{Level: "error", Output: "stderr"})
	c := New(Options{ErrorRateThreshold: 2, WindowSize: 200, Cooldown: 300 * time.Second}, fn, trail, logger)
	c.now = func() time.Time { return base }
	return c, fn
}

func line(pool, status string) string {
	return fmt.Sprintf(`"GET / HTTP/1.1" pool=%q release="v3.1.0" upstream_status=%q upstream_addr="10.0.0.1:8080"`, pool, status)
}

// =============================================================================
// PIPELINE TESTS
// =============================================================================

func TestCoordinator_MalformedLinesSkipped(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	c.ProcessLine(ctx, "garbage with no fields at all")
	c.ProcessLine(ctx, `pool="blue" but nothing else`)

	assert.Empty(t, fn.calls)
	assert.Empty(t, c.WindowSnapshot())
	assert.Equal(t, "", c.CurrentPool())
}

func TestCoordinator_UnknownPoolDoesNotTouchDetector(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	c.ProcessLine(ctx, line("blue", "200"))
	c.ProcessLine(ctx, line("-", "200"))
	c.ProcessLine(ctx, line("blue", "200"))

	assert.Equal(t, "blue", c.CurrentPool())
	assert.Empty(t, fn.ofKind(monitoring.KindFailover))
}

func TestCoordinator_ZeroStatusExcludedFromWindow(t *testing.T) {
	c, _ := newTestCoordinator(t, true)
	ctx := context.Background()

	c.ProcessLine(ctx, line("blue", "-"))
	c.ProcessLine(ctx, line("blue", "abc"))
	c.ProcessLine(ctx, line("blue", "200"))

	assert.Equal(t, []int{200}, c.WindowSnapshot())
}

func TestCoordinator_ScenarioA_SingleFailover(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	c.ProcessLine(ctx, line("blue", "200"))
	c.ProcessLine(ctx, line("blue", "200"))
	c.ProcessLine(ctx, line("green", "200"))

	failovers := fn.ofKind(monitoring.KindFailover)
	require.Len(t, failovers, 1)
	assert.Contains(t, failovers[0].message, "blue -> green")
	assert.Equal(t, "green", c.CurrentPool())
}

func TestCoordinator_ScenarioB_ErrorRateAlert(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		c.ProcessLine(ctx, line("blue", "503"))
	}
	c.ProcessLine(ctx, line("blue", "200"))

	// Rate crosses the threshold at sample 10; the later consideration
	// falls inside the cooldown, so exactly one attempt is made.
	alerts := fn.ofKind(monitoring.KindErrorRate)
	require.Len(t, alerts, 1)
	assert.Len(t, c.WindowSnapshot(), 11)
}

func TestCoordinator_ScenarioC_RetriedStatusLastWins(t *testing.T) {
	c, _ := newTestCoordinator(t, true)

	c.ProcessLine(context.Background(), line("blue", "502,502,200"))

	assert.Equal(t, []int{200}, c.WindowSnapshot())
}

func TestCoordinator_ScenarioD_SuppressedFailoverStillTracksPool(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	clock := base
	c.now = func() time.Time { return clock }

	c.ProcessLine(ctx, line("blue", "200"))
	c.ProcessLine(ctx, line("green", "200")) // fires

	clock = clock.Add(time.Second)
	c.ProcessLine(ctx, line("blue", "200")) // suppressed, 1s later

	assert.Len(t, fn.ofKind(monitoring.KindFailover), 1)
	// Suppression must not leave the detector on a stale pool.
	assert.Equal(t, "blue", c.CurrentPool())
}

func TestCoordinator_ErrorRateFiresAgainAfterCooldown(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	ctx := context.Background()

	clock := base
	c.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		c.ProcessLine(ctx, line("blue", "503"))
	}
	require.Len(t, fn.ofKind(monitoring.KindErrorRate), 1)

	clock = clock.Add(300 * time.Second)
	c.ProcessLine(ctx, line("blue", "503"))

	assert.Len(t, fn.ofKind(monitoring.KindErrorRate), 2)
}

func TestCoordinator_FailedDeliveryStillStartsCooldown(t *testing.T) {
	c, fn := newTestCoordinator(t, false) // channel rejects everything
	ctx := context.Background()

	c.ProcessLine(ctx, line("blue", "200"))
	c.ProcessLine(ctx, line("green", "200"))
	c.ProcessLine(ctx, line("blue", "200"))

	// Second failover is suppressed even though the first never delivered.
	assert.Len(t, fn.ofKind(monitoring.KindFailover), 1)
}

func TestCoordinator_ThresholdComparisonIsStrict(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	c.opts.ErrorRateThreshold = 10
	ctx := context.Background()

	// Exactly 10% of 10 samples: 1 error, 9 successes.
	c.ProcessLine(ctx, line("blue", "500"))
	for i := 0; i < 9; i++ {
		c.ProcessLine(ctx, line("blue", "200"))
	}

	assert.Empty(t, fn.ofKind(monitoring.KindErrorRate), "rate equal to threshold must not alert")
}

func TestCoordinator_Idempotence(t *testing.T) {
	lines := []string{
		line("blue", "200"),
		line("blue", "503"),
		line("green", "200"),
		"malformed",
		line("green", "502,200"),
	}

	run := func() (*Coordinator, *fakeNotifier) {
		c, fn := newTestCoordinator(t, true)
		for _, l := range lines {
			c.ProcessLine(context.Background(), l)
		}
		return c, fn
	}

	c1, fn1 := run()
	c2, fn2 := run()

	assert.Equal(t, c1.WindowSnapshot(), c2.WindowSnapshot())
	assert.Equal(t, c1.CurrentPool(), c2.CurrentPool())
	assert.Equal(t, fn1.calls, fn2.calls)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestCoordinator_RunLifecycle(t *testing.T) {
	c, fn := newTestCoordinator(t, true)
	src := &fakeSource{lines: make(chan string, 8)}

	src.lines <- line("blue", "200")
	src.lines <- line("green", "200")
	close(src.lines)

	err := c.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, StateTerminated, c.State())

	// Startup announcement is sent first, independent of cooldown.
	require.NotEmpty(t, fn.calls)
	assert.Equal(t, monitoring.KindStartup, fn.calls[0].kind)
	assert.Len(t, fn.ofKind(monitoring.KindFailover), 1)
}

func TestCoordinator_RunReportsSourceFailure(t *testing.T) {
	c, _ := newTestCoordinator(t, true)
	src := &fakeSource{lines: make(chan string), err: errors.New("disk gone")}
	close(src.lines)

	err := c.Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, StateTerminated, c.State())
}

func TestCoordinator_RunStopsOnCancel(t *testing.T) {
	c, _ := newTestCoordinator(t, true)
	src := &fakeSource{lines: make(chan string)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateTerminated, c.State())
}
