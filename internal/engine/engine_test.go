package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/errors"
)

func testOptions(root string) Options {
	return Options{
		Root:            root,
		Extensions:      []string{".weft"},
		ProcessDelay:    30 * time.Millisecond,
		OutputExtension: ".html",
		WriteOutputs:    true,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestProcess_RendersToDefaultDestination(t *testing.T) {
	// Given: a template with no output directive
	dir := t.TempDir()
	source := filepath.Join(dir, "home.weft")
	writeFile(t, source, "<h1>Hello</h1>")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	// When: processed
	result := eng.Process(source)

	// Then: it renders next to the source with the default extension
	require.True(t, result.Success)
	assert.Equal(t, []string{filepath.Join(dir, "home.html")}, result.OutputPaths)
	assert.Equal(t, "<h1>Hello</h1>", readFile(t, filepath.Join(dir, "home.html")))
}

func TestProcess_OutputDirectivesOverrideDefault(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "home.weft")
	writeFile(t, source, "<!--@ output index.html --><!--@ output en/index.html -->body")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	result := eng.Process(source)

	require.True(t, result.Success)
	assert.Equal(t, []string{
		filepath.Join(dir, "index.html"),
		filepath.Join(dir, "en", "index.html"),
	}, result.OutputPaths)
	assert.Equal(t, "body", readFile(t, filepath.Join(dir, "index.html")))
	assert.Equal(t, "body", readFile(t, filepath.Join(dir, "en", "index.html")))
	assert.NoFileExists(t, filepath.Join(dir, "home.html"))
}

func TestProcess_IncludeExpansion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "header.html"), "<h1>Hi</h1>")
	source := filepath.Join(dir, "home.weft")
	writeFile(t, source, "<!--@ include header.html -->Hello<!--@ output index.html -->")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	result := eng.Process(source)

	require.True(t, result.Success)
	assert.False(t, result.IsPartial)
	assert.Equal(t, "<h1>Hi</h1>Hello", readFile(t, filepath.Join(dir, "index.html")))
}

func TestProcess_PartialWritesNothing(t *testing.T) {
	// Given: a partial template
	dir := t.TempDir()
	source := filepath.Join(dir, "header.weft")
	writeFile(t, source, "<!--@ partial --><h1>Hi</h1>")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	// When: processed
	result := eng.Process(source)

	// Then: success, but no destinations and no file on disk
	require.True(t, result.Success)
	assert.True(t, result.IsPartial)
	assert.Empty(t, result.OutputPaths)
	assert.NoFileExists(t, filepath.Join(dir, "header.html"))
}

func TestProcess_DirectiveErrorYieldsFailedResult(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "home.weft")
	writeFile(t, source, "<!--@ include missing.html -->")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	result := eng.Process(source)

	assert.False(t, result.Success)
	assert.Equal(t, errors.ErrCodeIncludeNotFound, errors.GetCode(result.Err))
	// No partial output was written.
	assert.NoFileExists(t, filepath.Join(dir, "home.html"))
}

func TestProcess_MissingSourceYieldsFailedResult(t *testing.T) {
	dir := t.TempDir()

	eng, err := New(testOptions(dir))
	require.NoError(t, err)

	result := eng.Process(filepath.Join(dir, "gone.weft"))

	assert.False(t, result.Success)
	assert.Equal(t, errors.ErrCodeFileRead, errors.GetCode(result.Err))
}

func TestProcess_DryRunSkipsWriting(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "home.weft")
	writeFile(t, source, "body")

	opts := testOptions(dir)
	opts.WriteOutputs = false
	eng, err := New(opts)
	require.NoError(t, err)

	result := eng.Process(source)

	require.True(t, result.Success)
	assert.Equal(t, []string{filepath.Join(dir, "home.html")}, result.OutputPaths)
	assert.NoFileExists(t, filepath.Join(dir, "home.html"))
}

func TestStart_EmptyExtensionList_Rejected(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Extensions = nil

	eng, err := New(opts)
	require.NoError(t, err)

	err = eng.Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
	assert.Equal(t, StateStopped, eng.State())
}

func TestStart_MissingRoot_Rejected(t *testing.T) {
	opts := testOptions(filepath.Join(t.TempDir(), "does-not-exist"))

	eng, err := New(opts)
	require.NoError(t, err)

	err = eng.Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateStopped, eng.State())
}

func TestStart_ReentrantCallRejected(t *testing.T) {
	eng, err := New(testOptions(t.TempDir()))
	require.NoError(t, err)
	defer eng.Stop()

	require.NoError(t, eng.Start(context.Background()))
	require.Equal(t, StateRunning, eng.State())

	err = eng.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStop_IdempotentAndSafeBeforeStart(t *testing.T) {
	eng, err := New(testOptions(t.TempDir()))
	require.NoError(t, err)

	// Stop before start is a no-op.
	eng.Stop()
	assert.Equal(t, StateStopped, eng.State())

	require.NoError(t, eng.Start(context.Background()))
	eng.Stop()
	eng.Stop()
	assert.Equal(t, StateStopped, eng.State())
}

func TestLifecycle_EventOrder(t *testing.T) {
	// Given: a subscribed listener
	eng, err := New(testOptions(t.TempDir()))
	require.NoError(t, err)

	events, unsubscribe := eng.Subscribe(32)
	defer unsubscribe()

	// When: the engine starts and stops
	require.NoError(t, eng.Start(context.Background()))
	eng.Stop()

	// Then: lifecycle events arrive in emission order
	var got []Event
	for len(got) < 6 {
		select {
		case e := <-events:
			switch e.(type) {
			case Started, Stopped, StartedWatching, StoppedWatching:
				got = append(got, e)
			case Log:
				got = append(got, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for events, got %d", len(got))
		}
	}

	var lifecycle []Event
	for _, e := range got {
		if _, ok := e.(Log); !ok {
			lifecycle = append(lifecycle, e)
		}
	}
	require.Len(t, lifecycle, 4)
	assert.IsType(t, Started{}, lifecycle[0])
	assert.Equal(t, StartedWatching{Extension: ".weft"}, lifecycle[1])
	assert.Equal(t, StoppedWatching{Extension: ".weft"}, lifecycle[2])
	assert.IsType(t, Stopped{}, lifecycle[3])
}

func TestWatch_RendersOnChange(t *testing.T) {
	// Given: a running engine over a temp tree
	dir := t.TempDir()
	source := filepath.Join(dir, "home.weft")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)
	defer eng.Stop()

	require.NoError(t, eng.Start(context.Background()))

	// When: a template appears and settles
	writeFile(t, source, "<h1>Live</h1>")

	// Then: the rendered output shows up after the quiet period
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "home.html"))
		return err == nil && string(data) == "<h1>Live</h1>"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_FragmentChangeCascadesToIncluders(t *testing.T) {
	// Given: a page including a partial fragment, both watched
	dir := t.TempDir()
	fragment := filepath.Join(dir, "header.weft")
	page := filepath.Join(dir, "home.weft")
	writeFile(t, fragment, "<!--@ partial --><h1>v1</h1>")
	writeFile(t, page, "<!--@ include header.weft -->body")

	eng, err := New(testOptions(dir))
	require.NoError(t, err)
	defer eng.Stop()

	require.NoError(t, eng.Start(context.Background()))

	// Render the page once so its output exists.
	writeFile(t, page, "<!--@ include header.weft -->body")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "home.html"))
		return err == nil && string(data) == "<h1>v1</h1>body"
	}, 5*time.Second, 20*time.Millisecond)

	// When: the shared fragment changes
	writeFile(t, fragment, "<!--@ partial --><h1>v2</h1>")

	// Then: the including page re-renders with the new fragment
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "home.html"))
		return err == nil && string(data) == "<h1>v2</h1>body"
	}, 5*time.Second, 20*time.Millisecond)

	// And: the partial itself still rendered no output
	assert.NoFileExists(t, filepath.Join(dir, "header.html"))
}
