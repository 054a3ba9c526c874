// Package engine orchestrates the live template pipeline: it owns the
// watcher, one debouncer per monitored extension, the tag processor,
// and the reference index, and it raises events for every outcome.
//
// Lifecycle is a small state machine (Stopped -> Starting -> Running
// -> Stopped) guarded by a mutex. Re-entrant Start calls are rejected
// rather than silently tearing down and rebuilding, and Stop is
// idempotent.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/debounce"
	"github.com/weftlabs/weft/internal/errors"
	"github.com/weftlabs/weft/internal/refindex"
	"github.com/weftlabs/weft/internal/resolve"
	"github.com/weftlabs/weft/internal/tag"
	"github.com/weftlabs/weft/internal/watcher"
)

// cascadeWorkers bounds how many dependent files are reprocessed
// concurrently after a shared fragment changes.
const cascadeWorkers = 4

// State is the engine lifecycle state.
type State int

const (
	// StateStopped means no watches are registered.
	StateStopped State = iota
	// StateStarting means the start sequence is in progress.
	StateStarting
	// StateRunning means watches are live and changes are processed.
	StateRunning
)

// ErrAlreadyRunning is returned by Start when the engine is not stopped.
var ErrAlreadyRunning = errors.New(errors.ErrCodeInvalidConfiguration,
	"engine is already running", nil)

// Options configures an Engine. Fields must not be mutated once Start
// has begun setup.
type Options struct {
	// Root is the monitor root directory.
	Root string

	// Extensions are the monitored template extensions.
	Extensions []string

	// ProcessDelay is the debounce quiet period.
	ProcessDelay time.Duration

	// OutputExtension is the default rendered-file extension used when
	// no output directive names a destination.
	OutputExtension string

	// WriteOutputs controls whether rendered text is written to disk.
	// Disabled in dry-run mode; events are still raised.
	WriteOutputs bool
}

// OptionsFromConfig builds engine options from the sidecar config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:            cfg.Monitor,
		Extensions:      cfg.Extensions,
		ProcessDelay:    cfg.ProcessDelay(),
		OutputExtension: cfg.OutputExtension,
		WriteOutputs:    true,
	}
}

// Engine drives the watch -> debounce -> expand -> render pipeline.
type Engine struct {
	opts      Options
	resolver  *resolve.FileResolver
	processor *tag.Processor
	index     *refindex.Index
	bus       *Bus

	// mu is the lifecycle lock serializing Start/Stop transitions.
	mu         sync.Mutex
	state      State
	root       string
	watch      *watcher.Watcher
	debouncers map[string]*debounce.Debouncer
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an Engine with the given options.
func New(opts Options) (*Engine, error) {
	resolver, err := resolve.New()
	if err != nil {
		return nil, err
	}
	processor := tag.NewProcessor(resolver)

	return &Engine{
		opts:      opts,
		resolver:  resolver,
		processor: processor,
		index:     refindex.New(processor),
		bus:       NewBus(),
	}, nil
}

// Subscribe registers an event listener.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	return e.bus.Subscribe(buffer)
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Root returns the resolved monitor root. Empty before Start.
func (e *Engine) Root() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// Start resolves the monitor root, builds the reference index, and
// registers one debouncer per monitored extension. The whole sequence
// is atomic from the caller's point of view: a concurrent or
// re-entrant Start is rejected with ErrAlreadyRunning.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStopped {
		return ErrAlreadyRunning
	}
	if len(e.opts.Extensions) == 0 {
		return errors.InvalidConfiguration("no extensions configured to watch")
	}
	e.state = StateStarting

	root, err := filepath.Abs(e.opts.Root)
	if err != nil {
		e.state = StateStopped
		return errors.New(errors.ErrCodeInvalidPath,
			"cannot resolve monitor root "+e.opts.Root, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		e.state = StateStopped
		return errors.InvalidConfiguration("monitor root is not a directory: " + root)
	}
	e.root = root

	e.bus.Publish(Started{})
	e.logf(SeverityInformation, "Engine starting", "monitoring %s", root)

	if err := e.index.Rebuild(root, e.opts.Extensions); err != nil {
		e.logf(SeverityWarning, "Reference scan failed", "%v", err)
	}

	w, err := watcher.New(e.opts.Extensions)
	if err != nil {
		e.state = StateStopped
		return err
	}
	e.watch = w

	e.debouncers = make(map[string]*debounce.Debouncer, len(e.opts.Extensions))
	for _, ext := range e.opts.Extensions {
		e.debouncers[normalizeExt(ext)] = debounce.New(e.opts.ProcessDelay, e.dispatch)
		e.bus.Publish(StartedWatching{Extension: ext})
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		if err := w.Start(ctx, root); err != nil && ctx.Err() == nil {
			e.logf(SeverityError, "Watcher stopped", "%v", err)
		}
	}()
	// route gets its own snapshot of the debouncer map so it never
	// contends with the lifecycle lock during Stop.
	debouncers := e.debouncers
	go func() {
		defer e.wg.Done()
		e.route(ctx, w, debouncers)
	}()

	e.state = StateRunning
	return nil
}

// Stop cancels all pending debounce timers, tears down the watcher,
// and emits the stop events. Idempotent: calling it twice, or before
// Start, is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return
	}

	if e.cancel != nil {
		e.cancel()
	}
	for _, d := range e.debouncers {
		d.Stop()
	}
	if e.watch != nil {
		_ = e.watch.Stop()
	}
	e.wg.Wait()

	for _, ext := range e.opts.Extensions {
		e.bus.Publish(StoppedWatching{Extension: ext})
	}
	e.bus.Publish(Stopped{})
	e.logf(SeverityInformation, "Engine stopped", "released %d watch registrations", len(e.debouncers))

	e.debouncers = nil
	e.watch = nil
	e.cancel = nil
	e.state = StateStopped
}

// route feeds raw watch events into the debouncer that owns the
// file's extension.
func (e *Engine) route(ctx context.Context, w *watcher.Watcher, debouncers map[string]*debounce.Debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if d := debouncers[normalizeExt(filepath.Ext(ev.Path))]; d != nil {
				d.Notify(ev.Path)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			e.logf(SeverityWarning, "Watcher error", "%v", err)
		}
	}
}

// dispatch is the stable-change callback: it processes the changed
// file, then reprocesses every direct dependent from the reference
// index. Nothing is allowed to escape: every failure becomes a
// ProcessFailed event.
func (e *Engine) dispatch(path string) {
	e.resolver.Invalidate(path)

	result := e.Process(path)
	e.publishResult(result)

	e.index.Update(path)

	dependents := e.index.Dependents(path)
	if len(dependents) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(cascadeWorkers)
	for _, dep := range dependents {
		if strings.EqualFold(dep, path) {
			continue
		}
		dep := dep
		g.Go(func() error {
			e.publishResult(e.Process(dep))
			return nil
		})
	}
	_ = g.Wait()
}

// Process expands one source file and writes its rendered outputs.
// It never panics: any failure from the expansion step, including a
// panic, is captured and converted into a failed result.
func (e *Engine) Process(path string) (result ProcessResult) {
	result = ProcessResult{Path: path}

	defer func() {
		if r := recover(); r != nil {
			result = ProcessResult{
				Path: path,
				Err: errors.UnexpectedFailure(
					fmt.Sprintf("panic while processing %s: %v", path, r), nil),
			}
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = errors.Wrap(errors.ErrCodeFileRead, err)
		return result
	}

	expanded, err := e.processor.Expand(path, string(data))
	if err != nil {
		result.Err = err
		return result
	}

	result.Success = true
	result.IsPartial = expanded.IsPartial
	result.OutputPaths = e.destinations(path, expanded)

	if e.opts.WriteOutputs && !expanded.IsPartial {
		for _, dest := range result.OutputPaths {
			if err := writeOutput(dest, expanded.Text); err != nil {
				result.Success = false
				result.Err = err
				return result
			}
		}
	}
	return result
}

// destinations returns the render destinations for an expanded file:
// the output directives when present, otherwise the default of source
// directory plus base name plus the configured output extension.
// Partials render nowhere.
func (e *Engine) destinations(path string, res tag.Result) []string {
	if res.IsPartial {
		return nil
	}
	if len(res.OutputPaths) > 0 {
		return res.OutputPaths
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []string{filepath.Join(filepath.Dir(path), base+normalizeExt(e.opts.OutputExtension))}
}

// publishResult emits the success or failure event for a result.
func (e *Engine) publishResult(result ProcessResult) {
	if result.Success {
		e.bus.Publish(ProcessSucceeded{Result: result})
		slog.Debug("processed file",
			slog.String("path", result.Path),
			slog.Int("outputs", len(result.OutputPaths)),
			slog.Bool("partial", result.IsPartial))
		return
	}

	e.bus.Publish(ProcessFailed{Result: result})
	slog.Warn("processing failed",
		slog.String("path", result.Path),
		slog.String("error", errors.FormatForLog(result.Err)))
}

// logf raises a Log event and mirrors it to slog.
func (e *Engine) logf(sev Severity, title, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.bus.Publish(Log{
		Title:     title,
		Message:   msg,
		Severity:  sev,
		Timestamp: time.Now(),
	})
	slog.Info(title, slog.String("detail", msg))
}

// writeOutput writes rendered text to dest, creating parent
// directories as needed. An unchanged file is left untouched so that
// outputs living inside the monitored tree cannot feed the watcher
// forever.
func writeOutput(dest, text string) error {
	if existing, err := os.ReadFile(dest); err == nil && string(existing) == text {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeOutputWrite, err)
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeOutputWrite, err)
	}
	return nil
}

// normalizeExt ensures an extension carries a leading dot and is
// lower-cased.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
