package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/graft/internal/models"
)

// DefaultPattern matches include directives of the form #include "path".
// The single capture group extracts the referenced path; it admits word
// characters, dots, slashes and percent signs.
const DefaultPattern = `#include "([\w./%]*)"`

// DefaultMaxDepth is the substitution pass limit used when the caller does
// not override it.
const DefaultMaxDepth = 5

// Logger is the minimal logging surface the resolver reports through.
// It is satisfied by logger.ConsoleLogger, logger.FileLogger and logger.NoOpLogger.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
	LogError(message string)
}

// nopLogger discards all resolver diagnostics.
type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogWarn(string)  {}
func (nopLogger) LogError(string) {}

// PassResult is the outcome of a single substitution pass over one piece of content.
type PassResult struct {
	Content       string // Content after the pass
	DidSubstitute bool   // Whether at least one directive was replaced
	MissingRefs   int    // Directives whose referenced file was absent
}

// Resolver expands include directives against an immutable content store.
// It holds no mutable state between calls: the same inputs always produce
// the same outputs, so a single Resolver is safe for concurrent use.
type Resolver struct {
	store    models.ContentStore
	pattern  *regexp.Regexp
	maxDepth int
	log      Logger
}

// New creates a Resolver over store. pattern must contain the single capture
// group that extracts the referenced path from a directive match. maxDepth
// bounds the number of substitution passes per file and must be >= 0.
// A nil log discards diagnostics.
func New(store models.ContentStore, pattern *regexp.Regexp, maxDepth int, log Logger) *Resolver {
	if log == nil {
		log = nopLogger{}
	}
	return &Resolver{
		store:    store,
		pattern:  pattern,
		maxDepth: maxDepth,
		log:      log,
	}
}

// SubstituteOnce performs one left-to-right substitution pass over content.
//
// Every directive match is replaced by the original store content of the
// file its capture group names. A match whose referenced file is absent is
// dropped from the output with a warning and the pass continues. A match
// that does not carry exactly one capture group aborts the pass: the input
// content is returned unchanged and DidSubstitute is false.
//
// Directives inside substituted content are left for the next pass.
func (r *Resolver) SubstituteOnce(content string) PassResult {
	matches := r.pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return PassResult{Content: content}
	}

	var out strings.Builder
	out.Grow(len(content))

	result := PassResult{}
	last := 0
	for _, m := range matches {
		// m holds [matchStart, matchEnd, group1Start, group1End]; any other
		// shape means the pattern cannot name a referenced path.
		if len(m) != 4 {
			r.log.LogError("regex doesn't include capture group")
			return PassResult{Content: content}
		}

		out.WriteString(content[last:m[0]])
		last = m[1]

		ref := ""
		if m[2] >= 0 {
			ref = content[m[2]:m[3]]
		}

		included, ok := r.store[ref]
		if !ok {
			r.log.LogWarn(fmt.Sprintf("included file %q doesn't exist -> ignoring", ref))
			result.MissingRefs++
			continue
		}

		out.WriteString(included)
		result.DidSubstitute = true
	}
	out.WriteString(content[last:])

	result.Content = out.String()
	return result
}

// Resolve expands the file at path until a pass makes no substitution or
// the pass limit is reached. path must be a key of the store; expansion
// starts from its original content.
//
// The output of every pass is kept, including passes that only dropped
// directives referencing absent files. A file whose directives were still
// expanding when the limit was hit is reported with a warning and has
// DepthExhausted set; its content up to that point is returned as-is.
func (r *Resolver) Resolve(path string) models.ExpansionResult {
	result := models.ExpansionResult{
		Path:    path,
		Content: r.store[path],
	}

	for i := 0; i < r.maxDepth; i++ {
		pass := r.SubstituteOnce(result.Content)
		result.Passes++
		result.Content = pass.Content
		result.MissingRefs += pass.MissingRefs

		if !pass.DidSubstitute {
			return result
		}
		result.Substituted = true
	}

	r.log.LogWarn("max inclusion depth reached for " + path)
	result.DepthExhausted = true
	return result
}

// ResolveAll expands every file in the store and returns the full output
// set. Files are processed in sorted path order so diagnostics are emitted
// deterministically.
func (r *Resolver) ResolveAll() models.OutputSet {
	out := make(models.OutputSet, len(r.store))
	for _, path := range r.store.Paths() {
		r.log.LogDebug("expanding " + path)
		out[path] = r.Resolve(path)
	}
	return out
}

// ExtractRefs returns the referenced path of every directive match in
// content, in match order, including duplicates and paths that do not
// exist. It returns nil when pattern carries no usable capture group.
//
// This is the read-only counterpart of SubstituteOnce used by the validate
// and graph commands, which inspect references without rewriting anything.
func ExtractRefs(content string, pattern *regexp.Regexp) []string {
	var refs []string
	for _, m := range pattern.FindAllStringSubmatchIndex(content, -1) {
		if len(m) != 4 {
			return nil
		}
		if m[2] < 0 {
			refs = append(refs, "")
			continue
		}
		refs = append(refs, content[m[2]:m[3]])
	}
	return refs
}
