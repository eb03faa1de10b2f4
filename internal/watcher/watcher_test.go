package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteup/noteup/internal/logger"
)

func startWatcher(t *testing.T, path string, settle time.Duration) *Watcher {
	t.Helper()

	w, err := New(logger.Discard().Logger, path, Options{SettleDelay: settle})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx) //nolint:errcheck // Test goroutine
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w
}

func waitEvent(t *testing.T, w *Watcher, timeout time.Duration) Event {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(logger.Discard().Logger, filepath.Join(t.TempDir(), "nope", "KoboReader.sqlite"), Options{})
	assert.Error(t, err)
}

func TestNew_DefaultSettleDelay(t *testing.T) {
	w, err := New(logger.Discard().Logger, filepath.Join(t.TempDir(), "KoboReader.sqlite"), Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	assert.Equal(t, DefaultSettleDelay, w.opts.SettleDelay)
	assert.True(t, filepath.IsAbs(w.Path()))
}

func TestWatcher_ChangeAfterSettle(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")
	require.NoError(t, os.WriteFile(db, []byte("v1"), 0o644))

	w := startWatcher(t, db, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(db, []byte("version two"), 0o644))

	event := waitEvent(t, w, 2*time.Second)
	assert.Equal(t, EventChanged, event.Type)
	assert.Equal(t, w.Path(), event.Path)
	assert.Equal(t, int64(11), event.Size)
}

func TestWatcher_BurstYieldsOneEvent(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")

	w := startWatcher(t, db, 150*time.Millisecond)

	for i := range 5 {
		require.NoError(t, os.WriteFile(db, []byte("write "+string(rune('a'+i))), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	event := waitEvent(t, w, 2*time.Second)
	assert.Equal(t, EventChanged, event.Type)

	select {
	case extra := <-w.Events():
		t.Fatalf("unexpected second event: %+v", extra)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")

	w := startWatcher(t, db, 30*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "KoboReader.sqlite-wal"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case event := <-w.Events():
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Removed(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")
	require.NoError(t, os.WriteFile(db, []byte("v1"), 0o644))

	w := startWatcher(t, db, 50*time.Millisecond)

	require.NoError(t, os.Remove(db))

	event := waitEvent(t, w, 2*time.Second)
	assert.Equal(t, EventRemoved, event.Type)
}

func TestWatcher_ReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")
	require.NoError(t, os.WriteFile(db, []byte("v1"), 0o644))

	w := startWatcher(t, db, 50*time.Millisecond)

	staged := filepath.Join(dir, "incoming.tmp")
	require.NoError(t, os.WriteFile(staged, []byte("synced copy"), 0o644))
	require.NoError(t, os.Rename(staged, db))

	event := waitEvent(t, w, 2*time.Second)
	assert.Equal(t, EventChanged, event.Type)
	assert.Equal(t, int64(11), event.Size)
}

func TestWatcher_SlowConsumerDoesNotHoldLock(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "KoboReader.sqlite")
	require.NoError(t, os.WriteFile(db, []byte("v1"), 0o644))

	w, err := New(logger.Discard().Logger, db, Options{SettleDelay: time.Hour})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	// Nobody reads Events: fill the buffer.
	for len(w.events) < cap(w.events) {
		w.events <- Event{Type: EventChanged, Path: db}
	}

	w.startSettling()
	blocked := make(chan struct{})
	go func() {
		w.checkSettled() // blocks in emit until Stop
		close(blocked)
	}()

	// Wait until the settled event has been taken off the pending slot.
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.pending == nil
	}, time.Second, 5*time.Millisecond)

	settling := make(chan struct{})
	go func() {
		w.startSettling()
		close(settling)
	}()
	select {
	case <-settling:
	case <-time.After(time.Second):
		t.Fatal("startSettling blocked behind a pending emit")
	}

	require.NoError(t, w.Stop())
	<-blocked
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(logger.Discard().Logger, filepath.Join(t.TempDir(), "KoboReader.sqlite"), Options{})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "changed", EventChanged.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
