// Package resolve locates and reads include targets for template
// expansion. Lookup is deliberately simple: an include path is joined
// to the including file's directory, and that is the only location
// searched. A missing target is a normal outcome, reported as
// ErrNotFound rather than a fault.
package resolve

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/weftlabs/weft/internal/errors"
)

// contentCacheSize bounds the number of cached include bodies. Shared
// fragments are read once per burst of rebuilds instead of once per
// includer.
const contentCacheSize = 256

// ErrNotFound is returned when the resolved path does not exist or is
// a directory. Callers check it with errors.Is.
var ErrNotFound = errors.New(errors.ErrCodeFileNotFound, "include target does not exist", nil)

// FileResolver resolves include paths against the local file system,
// caching file contents in an LRU keyed by lower-cased absolute path.
type FileResolver struct {
	cache *lru.Cache[string, string]
}

// New creates a FileResolver.
// Returns an error if cache initialization fails.
func New() (*FileResolver, error) {
	cache, err := lru.New[string, string](contentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}
	return &FileResolver{cache: cache}, nil
}

// Resolve joins includePath to the directory of fromPath and returns
// the resolved absolute path. With wantContent the file body is also
// read (through the cache); without it only existence is checked and
// content is empty.
func (r *FileResolver) Resolve(fromPath, includePath string, wantContent bool) (string, string, error) {
	joined := filepath.Join(filepath.Dir(fromPath), strings.TrimSpace(includePath))
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", "", errors.New(errors.ErrCodeInvalidPath,
			"cannot resolve include path "+includePath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", ErrNotFound
		}
		return "", "", errors.Wrap(errors.ErrCodeFileRead, err)
	}
	if info.IsDir() {
		return "", "", ErrNotFound
	}

	if !wantContent {
		return "", abs, nil
	}

	key := cacheKey(abs)
	if content, ok := r.cache.Get(key); ok {
		return content, abs, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeFileRead, err)
	}

	content := string(data)
	r.cache.Add(key, content)
	return content, abs, nil
}

// NotFound reports whether err represents a missing include target.
func (r *FileResolver) NotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// Invalidate drops any cached content for path. Called by the engine
// when a watched file changes so the next expansion re-reads it.
func (r *FileResolver) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	r.cache.Remove(cacheKey(path))
}

// cacheKey normalizes a path for case-insensitive cache lookup,
// matching the case-insensitive comparison used by the reference index.
func cacheKey(abs string) string {
	return strings.ToLower(abs)
}
