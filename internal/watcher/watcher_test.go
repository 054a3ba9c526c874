package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, exts []string) *Watcher {
	t.Helper()
	w, err := New(exts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	go func() {
		_ = w.Start(context.Background(), root)
	}()
	// Give the recursive watch a moment to register.
	time.Sleep(50 * time.Millisecond)
	return w
}

func collectEvent(t *testing.T, w *Watcher, timeout time.Duration) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-w.Events():
		return e, ok
	case <-time.After(timeout):
		return Event{}, false
	}
}

func TestWatcher_EmitsEventForMatchingExtension(t *testing.T) {
	// Given: a watcher over a temp tree
	dir := t.TempDir()
	w := startWatcher(t, dir, []string{".weft"})

	// When: a matching file is written
	path := filepath.Join(dir, "home.weft")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	// Then: an event with the absolute path arrives
	e, ok := collectEvent(t, w, 3*time.Second)
	require.True(t, ok, "expected a watch event")
	assert.Equal(t, path, e.Path)
	assert.False(t, e.Timestamp.IsZero())
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []string{".weft"})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	_, ok := collectEvent(t, w, 300*time.Millisecond)
	assert.False(t, ok, "unexpected event for unmatched extension")
}

func TestWatcher_SeesFilesInNewSubdirectories(t *testing.T) {
	// New directories must join the watch set for recursion to hold.
	dir := t.TempDir()
	w := startWatcher(t, dir, []string{".weft"})

	sub := filepath.Join(dir, "pages")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Allow the create event to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "about.weft")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		e, ok := collectEvent(t, w, 200*time.Millisecond)
		return ok && e.Path == path
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New([]string{".weft"})
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Channels are closed after stop.
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestWatcher_RootPath(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, []string{".weft"})

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, w.RootPath())
}
