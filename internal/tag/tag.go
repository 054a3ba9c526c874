package tag

import (
	"regexp"
	"strings"

	"github.com/weftlabs/weft/internal/errors"
)

// Kind identifies a recognized directive.
type Kind int

const (
	// KindPartial marks the file as non-self-rendering.
	KindPartial Kind = iota
	// KindOutput registers a render destination.
	KindOutput
	// KindInclude splices another file's text in place.
	KindInclude
)

// String returns the directive name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindOutput:
		return "output"
	case KindInclude:
		return "include"
	default:
		return "unknown"
	}
}

// Tag is one parsed directive occurrence in a source text.
type Tag struct {
	// Kind is the recognized directive.
	Kind Kind

	// Arg is the trimmed argument string. Empty when absent.
	Arg string

	// Start and End are the byte span the directive occupies,
	// including its comment markers.
	Start int
	End   int
}

// pattern matches one directive on a single line: an opening comment
// marker with an @ sigil, a directive name, an optional argument, and
// the closing marker. The argument may not span lines or contain the
// closing marker.
var pattern = regexp.MustCompile(`<!--[ \t]*@[ \t]*([A-Za-z]+)([^\r\n]*?)[ \t]*-->`)

// argRequired reports whether a directive kind needs an argument.
func argRequired(k Kind) bool {
	return k == KindOutput || k == KindInclude
}

// findFirst locates the first directive in text.
// Returns nil when no directive remains. An unrecognized name or a
// missing required argument is an error.
func findFirst(text string) (*Tag, error) {
	m := pattern.FindStringSubmatchIndex(text)
	if m == nil {
		return nil, nil
	}

	name := strings.ToLower(text[m[2]:m[3]])

	var kind Kind
	switch name {
	case "partial":
		kind = KindPartial
	case "output":
		kind = KindOutput
	case "include":
		kind = KindInclude
	default:
		return nil, errors.UnknownTag(name)
	}

	arg := ""
	if m[4] >= 0 {
		arg = strings.TrimSpace(text[m[4]:m[5]])
	}
	if arg == "" && argRequired(kind) {
		return nil, errors.MalformedTag(name)
	}

	return &Tag{Kind: kind, Arg: arg, Start: m[0], End: m[1]}, nil
}
