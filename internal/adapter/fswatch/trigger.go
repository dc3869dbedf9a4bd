// Package fswatch turns new input artifacts into debounced run triggers.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

// Target is a directory and the artifact pattern watched inside it.
type Target struct {
	Dir     string
	Pattern string
}

// Trigger emits on C after a quiet period following changes to any matching
// artifact. Bursts of events collapse into a single trigger.
type Trigger struct {
	watcher  *fsnotify.Watcher
	patterns map[string]string
	debounce time.Duration
	clock    clockwork.Clock
	out      chan struct{}
	logger   *slog.Logger
}

// New starts watching every target directory, creating it if absent.
func New(targets []Target, debounce time.Duration, clock clockwork.Clock, logger *slog.Logger) (*Trigger, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	patterns := make(map[string]string, len(targets))
	for _, target := range targets {
		dir := filepath.Clean(target.Dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		patterns[dir] = target.Pattern
	}

	return &Trigger{
		watcher:  watcher,
		patterns: patterns,
		debounce: debounce,
		clock:    clock,
		out:      make(chan struct{}, 1),
		logger:   logger,
	}, nil
}

// C delivers triggers. It is closed when Run returns.
func (t *Trigger) C() <-chan struct{} {
	return t.out
}

// Run forwards debounced events until ctx is cancelled or the watcher closes.
func (t *Trigger) Run(ctx context.Context) error {
	defer close(t.out)

	var (
		timer   clockwork.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if !t.matches(event) {
				continue
			}
			t.logger.Debug("artifact changed", "path", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = t.clock.NewTimer(t.debounce)
			pending = timer.Chan()

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Error("watcher error", "error", err)

		case <-pending:
			timer, pending = nil, nil
			select {
			case t.out <- struct{}{}:
			default: // a trigger is already queued
			}
		}
	}
}

// Close stops the underlying watcher.
func (t *Trigger) Close() error {
	return t.watcher.Close()
}

func (t *Trigger) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	pattern, ok := t.patterns[filepath.Dir(event.Name)]
	if !ok {
		return false
	}
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
