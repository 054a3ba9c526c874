package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolve_ReadsRelativeToSourceDir(t *testing.T) {
	// Given: a fragment next to the source file
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "header.html"), "<h1>Hi</h1>")
	from := filepath.Join(dir, "home.weft")

	r, err := New()
	require.NoError(t, err)

	// When: resolved with content
	content, abs, err := r.Resolve(from, "header.html", true)

	// Then: the body and absolute path come back
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1>", content)
	assert.Equal(t, filepath.Join(dir, "header.html"), abs)
}

func TestResolve_SubdirectoryInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shared", "nav.html"), "<nav/>")

	r, err := New()
	require.NoError(t, err)

	content, abs, err := r.Resolve(filepath.Join(dir, "home.weft"), "shared/nav.html", true)

	require.NoError(t, err)
	assert.Equal(t, "<nav/>", content)
	assert.Equal(t, filepath.Join(dir, "shared", "nav.html"), abs)
}

func TestResolve_MissingTarget_ReturnsNotFound(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, _, err = r.Resolve(filepath.Join(t.TempDir(), "home.weft"), "missing.html", true)

	require.Error(t, err)
	assert.True(t, r.NotFound(err))
}

func TestResolve_DirectoryTarget_ReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "header.html"), 0o755))

	r, err := New()
	require.NoError(t, err)

	_, _, err = r.Resolve(filepath.Join(dir, "home.weft"), "header.html", true)

	require.Error(t, err)
	assert.True(t, r.NotFound(err))
}

func TestResolve_ExistenceCheckSkipsContent(t *testing.T) {
	// Given: an existing fragment
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "header.html"), "<h1>Hi</h1>")

	r, err := New()
	require.NoError(t, err)

	// When: resolved without content
	content, abs, err := r.Resolve(filepath.Join(dir, "home.weft"), "header.html", false)

	// Then: only the path is reported
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Equal(t, filepath.Join(dir, "header.html"), abs)
}

func TestResolve_CachedContentSurvivesFileChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "header.html")
	writeFile(t, target, "v1")
	from := filepath.Join(dir, "home.weft")

	r, err := New()
	require.NoError(t, err)

	content, _, err := r.Resolve(from, "header.html", true)
	require.NoError(t, err)
	require.Equal(t, "v1", content)

	// The file changes on disk but the cache still serves v1.
	writeFile(t, target, "v2")
	content, _, err = r.Resolve(from, "header.html", true)
	require.NoError(t, err)
	assert.Equal(t, "v1", content)
}

func TestInvalidate_ForcesReRead(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "header.html")
	writeFile(t, target, "v1")
	from := filepath.Join(dir, "home.weft")

	r, err := New()
	require.NoError(t, err)

	_, _, err = r.Resolve(from, "header.html", true)
	require.NoError(t, err)

	writeFile(t, target, "v2")
	r.Invalidate(target)

	content, _, err := r.Resolve(from, "header.html", true)
	require.NoError(t, err)
	assert.Equal(t, "v2", content)
}

func TestResolve_TrimsIncludeArgument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "header.html"), "head")

	r, err := New()
	require.NoError(t, err)

	_, abs, err := r.Resolve(filepath.Join(dir, "home.weft"), "  header.html  ", false)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "header.html"), abs)
}
