package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/errors"
)

// Printer renders engine events as human-readable terminal lines.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	// root is stripped from paths for shorter output.
	root string
}

// NewPrinter creates a Printer writing to out, auto-detecting color
// support.
func NewPrinter(out io.Writer, root string) *Printer {
	return &Printer{
		out:    out,
		styles: StylesFor(out),
		root:   root,
	}
}

// Handle renders one engine event.
func (p *Printer) Handle(e engine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := e.(type) {
	case engine.Started:
		p.println(p.styles.Header.Render("weft") + " watching for changes")
	case engine.Stopped:
		p.println(p.styles.Dim.Render("stopped"))
	case engine.StartedWatching:
		p.println(p.styles.Dim.Render("watching " + ev.Extension))
	case engine.StoppedWatching:
		p.println(p.styles.Dim.Render("stopped watching " + ev.Extension))
	case engine.ProcessSucceeded:
		p.printSuccess(ev.Result)
	case engine.ProcessFailed:
		p.printFailure(ev.Result)
	case engine.Log:
		p.printLog(ev)
	}
}

func (p *Printer) printSuccess(r engine.ProcessResult) {
	src := p.relative(r.Path)
	if r.IsPartial {
		p.println(p.styles.Success.Render("✓ ") + p.styles.Path.Render(src) +
			p.styles.Dim.Render(" (partial, no output)"))
		return
	}

	dests := make([]string, len(r.OutputPaths))
	for i, d := range r.OutputPaths {
		dests[i] = p.relative(d)
	}
	p.println(p.styles.Success.Render("✓ ") + p.styles.Path.Render(src) +
		p.styles.Dim.Render(" → ") + p.styles.Path.Render(strings.Join(dests, ", ")))
}

func (p *Printer) printFailure(r engine.ProcessResult) {
	p.println(p.styles.Error.Render("✗ ") + p.styles.Path.Render(p.relative(r.Path)) +
		" " + p.styles.Error.Render(errors.FormatForLog(r.Err)))
}

func (p *Printer) printLog(ev engine.Log) {
	line := ev.Title
	if ev.Message != "" {
		line += ": " + ev.Message
	}
	switch ev.Severity {
	case engine.SeverityError:
		p.println(p.styles.Error.Render(line))
	case engine.SeverityWarning:
		p.println(p.styles.Warning.Render(line))
	case engine.SeverityDiagnostic:
		p.println(p.styles.Dim.Render(line))
	default:
		p.println(p.styles.Dim.Render(line))
	}
}

// relative shortens a path against the monitor root when possible.
func (p *Printer) relative(path string) string {
	if p.root == "" {
		return path
	}
	if rel, err := filepath.Rel(p.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func (p *Printer) println(line string) {
	_, _ = fmt.Fprintln(p.out, line)
}
