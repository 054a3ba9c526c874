// Package tag implements the directive language embedded in template
// source files and the expansion engine that rewrites them.
//
// Directives live inside HTML comments and take the form:
//
//	<!--@ name argument -->
//
// The name is case-insensitive, the argument is optional and trimmed,
// and a directive must fit on a single line. Three directives are
// recognized:
//   - partial: marks the file as non-self-rendering when it is the
//     first tag of the outermost file
//   - output <path>: adds a render destination (repeatable)
//   - include <path>: splices the referenced file's text in place
//
// Expansion repeatedly rewrites the first directive found until none
// remain, so text spliced in by an include is itself expanded in the
// same pass. An include chain tracks every include path expanded within
// one top-level call and turns repeats into circular-include errors,
// which is what guarantees termination.
package tag
