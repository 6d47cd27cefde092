// Package tail follows a growing log file and emits complete lines.
//
// DESIGN: The tailer is the source collaborator for the watch pipeline.
// It survives truncation and rotation: when the file shrinks or the
// inode behind the path changes, reading restarts from the top of the
// new file. Wakeups come from fsnotify on the parent directory with a
// polling ticker as fallback, so a missed event only delays a line by
// one poll interval.
package tail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// Options configures a Tailer.
type Options struct {
	Path         string
	PollInterval time.Duration
	FromStart    bool // read existing content instead of seeking to the end
}

// Tailer follows one log file across rotations.
type Tailer struct {
	opts   Options
	lines  chan string
	err    error
	logger *monitoring.Logger
}

// New creates a Tailer for the given file.
func New(opts Options, logger *monitoring.Logger) *Tailer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Tailer{
		opts:   opts,
		lines:  make(chan string, 64),
		logger: logger.With("tail"),
	}
}

// Lines returns the line channel. It is closed on termination; Err()
// reports the terminal error afterwards.
func (t *Tailer) Lines() <-chan string { return t.lines }

// Err returns the terminal error, nil after a clean shutdown.
func (t *Tailer) Err() error { return t.err }

// WaitReady blocks until the file exists, then starts the follow loop.
func (t *Tailer) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(t.opts.Path); err == nil {
			go t.follow(ctx)
			return nil
		}
		t.logger.Debug().Str("path", t.opts.Path).Msg("waiting for file")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// follow reads the file until the context is cancelled, reopening it
// whenever the path points at a different or truncated file.
func (t *Tailer) follow(ctx context.Context) {
	defer close(t.lines)

	wake := t.wakeups(ctx)

	f, reader, err := t.open()
	if err != nil {
		t.err = err
		return
	}
	defer func() { f.Close() }()

	if !t.opts.FromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			t.err = err
			return
		}
		reader.Reset(f)
	}

	var partial strings.Builder
	for {
		if done := t.drain(ctx, reader, &partial); done {
			return
		}

		// At EOF. Wait for growth or rotation.
		select {
		case <-ctx.Done():
			return
		case <-wake:
		}

		rotated, err := t.rotated(f)
		if err != nil {
			t.err = err
			return
		}
		if rotated {
			t.logger.Info().Str("path", t.opts.Path).Msg("file rotated, reopening")
			f.Close()
			partial.Reset()
			f, reader, err = t.open()
			if err != nil {
				t.err = err
				return
			}
		}
	}
}

// drain reads and emits every complete line currently available.
// Returns true when the context was cancelled mid-drain.
func (t *Tailer) drain(ctx context.Context, reader *bufio.Reader, partial *strings.Builder) bool {
	for {
		chunk, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// Hold the incomplete tail until the writer finishes it.
			partial.WriteString(chunk)
			return false
		}
		if err != nil {
			t.err = err
			return true
		}

		line := strings.TrimRight(partial.String()+chunk, "\r\n")
		partial.Reset()
		select {
		case <-ctx.Done():
			return true
		case t.lines <- line:
		}
	}
}

// open opens the watched file and positions at its start.
func (t *Tailer) open() (*os.File, *bufio.Reader, error) {
	f, err := os.Open(t.opts.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, bufio.NewReader(f), nil
}

// rotated reports whether the path no longer refers to the open file,
// or the file shrank below the current read offset.
func (t *Tailer) rotated(f *os.File) (bool, error) {
	cur, err := f.Stat()
	if err != nil {
		return false, err
	}
	disk, err := os.Stat(t.opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// Rotation in progress; the next wakeup retries.
			return false, nil
		}
		return false, err
	}
	if !os.SameFile(cur, disk) {
		return true, nil
	}
	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	return disk.Size() < offset, nil
}

// wakeups returns a channel that ticks when the file may have changed:
// fsnotify events on the parent directory, plus the polling fallback.
func (t *Tailer) wakeups(ctx context.Context) <-chan struct{} {
	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(filepath.Dir(t.opts.Path)); err == nil {
			events = watcher.Events
			errs = watcher.Errors
		} else {
			watcher.Close()
			watcher = nil
		}
	}
	if events == nil {
		t.logger.Warn().Msg("fsnotify unavailable, polling only")
	}

	go func() {
		defer func() {
			if watcher != nil {
				watcher.Close()
			}
		}()
		ticker := time.NewTicker(t.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				notify()
			case ev := <-events:
				if strings.HasPrefix(ev.Name, t.opts.Path) {
					notify()
				}
			case err := <-errs:
				t.logger.Debug().Err(err).Msg("fsnotify error")
			}
		}
	}()

	return wake
}
