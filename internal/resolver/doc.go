// Package resolver implements recursive include expansion over an immutable
// snapshot of source files.
//
// This package is the core of graft: it takes a content store built by the
// scanner, finds include directives via a configurable regular expression,
// and replaces each directive with the content of the file it references.
//
// # Substitution Model
//
// Expansion works in passes. A single pass walks a file's content left to
// right and replaces every directive match with the original store content
// of the referenced file. Directives that arrive as part of substituted
// content are never expanded within the same pass; they are picked up by
// the next pass. This keeps each pass a simple, single-scan text rewrite.
//
// Substitution always inserts the referenced file's original content from
// the store. Files are never expanded "through" each other's intermediate
// results, so the outcome does not depend on the order files are processed.
//
// # Pass Semantics
//
// The directive pattern must carry exactly one capture group naming the
// referenced path. Each match is checked individually: a match without a
// usable capture group aborts the whole pass and the input content is
// returned unchanged. A match whose referenced path is absent from the
// store is dropped from the output with a warning, and the pass continues
// with the remaining matches.
//
// # Depth Bounding
//
// Passes repeat until one of them makes no substitution, or until the
// configured pass limit is reached. The limit is what guarantees
// termination for self-referential and mutually-referential files; hitting
// it is reported as a warning and the content produced so far is kept.
//
// # Usage
//
//	store := models.NewContentStore(files)
//	pattern := regexp.MustCompile(config.DefaultPattern)
//	r := resolver.New(store, pattern, resolver.DefaultMaxDepth, log)
//	result := r.Resolve("docs/index.md")
//
// Expanding every file in the store:
//
//	outputs := r.ResolveAll()
//	for _, path := range outputs.Paths() {
//	    fmt.Println(path, outputs[path].Passes)
//	}
//
// # Design Principles
//
// Deterministic:
// A Resolver holds no mutable state. The same store, pattern and depth
// limit always produce byte-identical output, and ResolveAll processes
// files in sorted path order so diagnostics are stable across runs.
//
// Error Tolerant:
// Unresolvable references degrade the output (the directive is dropped)
// instead of failing the run. Only the pattern itself lacking a capture
// group stops a pass, and even then the file's content survives unchanged.
package resolver
