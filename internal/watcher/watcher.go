// Package watcher reports when a single file, the reader database, has
// been rewritten and settled.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one file through its parent directory, so that the file
// may be deleted and recreated (copied over, re-mounted) without losing
// the watch.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	target  string
	watcher *fsnotify.Watcher

	pending *pendingEvent // non-nil while the target is settling
	mu      sync.Mutex    // protects pending

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// pendingEvent tracks the target while it may still be changing
type pendingEvent struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher for path. The parent directory must exist; the
// file itself may not exist yet.
func New(logger *slog.Logger, path string, opts Options) (*Watcher, error) {
	opts.setDefaults()

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		target:  target,
		watcher: fw,
		events:  make(chan Event, 16),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.target
}

// Start processes events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()

	w.logger.Info("watching source database", "path", w.target, "settle_delay", w.opts.SettleDelay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("dropped watcher error", "error", err)
			}
		}
	}
}

// handle filters fsnotify events down to the target file.
func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.target {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename onto the target arrives as Create; a rename away is a removal.
		if _, err := os.Stat(w.target); err == nil {
			w.startSettling()
			return
		}
		w.cancelPending()
		w.emit(Event{Type: EventRemoved, Path: w.target})
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.startSettling()
	}
}

// startSettling (re)starts the settle timer for the target.
func (w *Watcher) startSettling() {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.target)
	if err != nil {
		w.logger.Debug("stat watched file", "path", w.target, "error", err)
		return
	}

	if w.pending != nil {
		w.pending.timer.Stop()
	}
	w.pending = &pendingEvent{
		size:    info.Size(),
		modTime: info.ModTime(),
		timer:   time.AfterFunc(w.opts.SettleDelay, w.checkSettled),
	}
}

// checkSettled emits a change once size and mtime held still for a full
// settle period. The event is sent after w.mu is released so a slow
// consumer never blocks the event loop.
func (w *Watcher) checkSettled() {
	if event, ok := w.settled(); ok {
		w.emit(event)
	}
}

func (w *Watcher) settled() (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending := w.pending
	if pending == nil {
		return Event{}, false
	}

	info, err := os.Stat(w.target)
	if err != nil {
		w.pending = nil
		return Event{Type: EventRemoved, Path: w.target}, true
	}

	if info.Size() != pending.size || !info.ModTime().Equal(pending.modTime) {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.SettleDelay, w.checkSettled)
		return Event{}, false
	}

	w.pending = nil
	return Event{
		Type:    EventChanged,
		Path:    w.target,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
}

// emit sends an event unless the watcher is stopping.
func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Events returns the channel of settled changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.cancelPending()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
