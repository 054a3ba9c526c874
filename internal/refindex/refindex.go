// Package refindex maintains a reverse map from included files to the
// source files that include them. When a shared fragment changes, the
// engine asks the index which files depend on it and reprocesses each
// one. The relation is direct (one hop): a file including a file that
// includes the changed fragment is not reported.
package refindex

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Scanner extracts the set of resolved include targets from one
// source text. Implemented by tag.Processor.
type Scanner interface {
	ScanIncludes(path, text string) (map[string]struct{}, error)
}

// Index is a thread-safe reverse-dependency index over a monitored
// tree. Keys are lower-cased absolute paths.
type Index struct {
	scanner Scanner

	mu sync.RWMutex
	// includes maps a source file to the set of targets it includes.
	// Source keys keep their original casing for reporting; target
	// keys are lower-cased for case-insensitive comparison.
	includes map[string]map[string]struct{}
}

// New creates an empty Index that scans files with s.
func New(s Scanner) *Index {
	return &Index{
		scanner:  s,
		includes: make(map[string]map[string]struct{}),
	}
}

// Rebuild walks the monitored tree and rescans every file whose name
// matches one of the monitored extensions. Files that fail to read or
// scan are logged and skipped; a broken file never poisons the index.
func (ix *Index) Rebuild(root string, exts []string) error {
	fresh := make(map[string]map[string]struct{})

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping path in reference scan",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() || !MatchesExtension(path, exts) {
			return nil
		}

		targets, ok := ix.scanFile(path)
		if ok {
			fresh[path] = targets
		}
		return nil
	})
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.includes = fresh
	ix.mu.Unlock()
	return nil
}

// Update rescans a single source file in place. A file that no longer
// exists is removed from the index.
func (ix *Index) Update(path string) {
	if _, err := os.Stat(path); err != nil {
		ix.Remove(path)
		return
	}

	targets, ok := ix.scanFile(path)
	if !ok {
		return
	}

	ix.mu.Lock()
	ix.includes[path] = targets
	ix.mu.Unlock()
}

// Remove drops a source file from the index.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	delete(ix.includes, path)
	ix.mu.Unlock()
}

// Dependents returns the source files whose include set contains
// includePath, compared case-insensitively. Results are sorted for
// deterministic cascade order.
func (ix *Index) Dependents(includePath string) []string {
	key := normalize(includePath)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var deps []string
	for source, targets := range ix.includes {
		if _, ok := targets[key]; ok {
			deps = append(deps, source)
		}
	}
	sort.Strings(deps)
	return deps
}

// Len returns the number of indexed source files.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.includes)
}

// scanFile reads and scans one source file.
func (ix *Index) scanFile(path string) (map[string]struct{}, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("cannot read file for reference scan",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}

	targets, err := ix.scanner.ScanIncludes(path, string(data))
	if err != nil {
		slog.Warn("cannot scan file for references",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}
	return targets, true
}

// MatchesExtension reports whether path ends in one of the monitored
// extensions, case-insensitively. Extensions may be given with or
// without a leading dot.
func MatchesExtension(path string, exts []string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range exts {
		e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if e == "" {
			continue
		}
		if strings.HasSuffix(name, "."+e) {
			return true
		}
	}
	return false
}

// normalize lower-cases an absolute path for index comparison.
func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return strings.ToLower(path)
}
