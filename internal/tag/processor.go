package tag

import (
	"path/filepath"
	"strings"

	"github.com/weftlabs/weft/internal/errors"
)

// Resolver locates include targets relative to a source file.
// wantContent=false performs an existence check only, returning the
// resolved absolute path with empty content.
type Resolver interface {
	Resolve(fromPath, includePath string, wantContent bool) (content string, absPath string, err error)
	// NotFound reports whether err represents a missing include target.
	NotFound(err error) bool
}

// Result is the outcome of expanding one source file.
type Result struct {
	// Text is the fully expanded source text.
	Text string

	// OutputPaths are the absolute render destinations requested by
	// output directives, in declaration order.
	OutputPaths []string

	// IsPartial is true when the file's first tag was a partial
	// directive, meaning the file renders no output of its own.
	IsPartial bool
}

// Processor expands directive tags in source texts.
type Processor struct {
	resolver Resolver
}

// NewProcessor creates a Processor that resolves includes through r.
func NewProcessor(r Resolver) *Processor {
	return &Processor{resolver: r}
}

// includeChain is the set of include paths already expanded within one
// top-level Expand call. Lives only for that call; used solely to
// detect circular references.
type includeChain map[string]struct{}

// chainKey normalizes an include argument for chain membership.
func chainKey(includePath string) string {
	return strings.ToLower(strings.TrimSpace(includePath))
}

// Expand rewrites every directive in text and returns the expanded
// result. The loop always restarts from the beginning of the mutated
// text, so text spliced in by an include is itself expanded in the
// same pass. Any directive error aborts the whole expansion; there is
// no partial success.
func (p *Processor) Expand(path, text string) (Result, error) {
	res := Result{Text: text}
	chain := make(includeChain)
	first := true

	for {
		t, err := findFirst(res.Text)
		if err != nil {
			return Result{}, err
		}
		if t == nil {
			return res, nil
		}

		replacement := ""

		switch t.Kind {
		case KindPartial:
			// Only the first tag of the outermost file may mark it
			// partial; a partial arriving via an include is deleted
			// without effect.
			if first {
				res.IsPartial = true
			}

		case KindOutput:
			abs, err := resolveOutput(path, t.Arg)
			if err != nil {
				return Result{}, err
			}
			res.OutputPaths = append(res.OutputPaths, abs)

		case KindInclude:
			key := chainKey(t.Arg)
			if _, seen := chain[key]; seen {
				return Result{}, errors.CircularInclude(t.Arg).WithDetail("file", path)
			}
			content, _, err := p.resolver.Resolve(path, t.Arg, true)
			if err != nil {
				if p.resolver.NotFound(err) {
					return Result{}, errors.IncludeNotFound(t.Arg).WithDetail("file", path)
				}
				return Result{}, err
			}
			chain[key] = struct{}{}
			replacement = content
		}

		res.Text = res.Text[:t.Start] + replacement + res.Text[t.End:]
		first = false
	}
}

// ScanIncludes runs the same scan-and-delete loop as Expand but records
// the resolved include targets instead of splicing, with no output or
// partial side effects. Spliced content is never read, so only the
// file's own direct includes are reported. Missing targets are skipped,
// not errors: a broken include still leaves the rest of the file
// scannable.
func (p *Processor) ScanIncludes(path, text string) (map[string]struct{}, error) {
	targets := make(map[string]struct{})

	for {
		t, err := findFirst(text)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return targets, nil
		}

		if t.Kind == KindInclude {
			_, abs, err := p.resolver.Resolve(path, t.Arg, false)
			if err == nil {
				targets[strings.ToLower(abs)] = struct{}{}
			} else if !p.resolver.NotFound(err) {
				return nil, err
			}
		}

		text = text[:t.Start] + text[t.End:]
	}
}

// resolveOutput turns an output directive argument into an absolute
// destination path relative to the source file's directory.
func resolveOutput(fromPath, arg string) (string, error) {
	joined := filepath.Join(filepath.Dir(fromPath), arg)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidPath,
			"cannot resolve output path "+arg, err)
	}
	return abs, nil
}
