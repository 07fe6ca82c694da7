package models

import (
	"sort"
	"time"
)

// SourceFile represents a single text file captured during the scan phase
type SourceFile struct {
	Path    string // Path relative to the scan root, slash-separated
	Content string // Original file content, never mutated
}

// ContentStore maps relative file paths to their original content.
// The store is built once per run and treated as read-only afterwards:
// substitution always inserts the original content of a referenced file,
// never a partially expanded version of it.
type ContentStore map[string]string

// NewContentStore builds a ContentStore from scanned source files
func NewContentStore(files []SourceFile) ContentStore {
	store := make(ContentStore, len(files))
	for _, f := range files {
		store[f.Path] = f.Content
	}
	return store
}

// Contains reports whether path is present in the store
func (cs ContentStore) Contains(path string) bool {
	_, ok := cs[path]
	return ok
}

// Paths returns all store paths sorted alphabetically for deterministic iteration
func (cs ContentStore) Paths() []string {
	paths := make([]string, 0, len(cs))
	for p := range cs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ExpansionResult represents the outcome of fully expanding a single file
type ExpansionResult struct {
	Path           string // Relative path of the source file
	Content        string // Final content after all substitution passes
	Passes         int    // Number of substitution passes performed
	Substituted    bool   // Whether any pass replaced at least one directive
	DepthExhausted bool   // Whether the pass limit was reached while directives kept expanding
	MissingRefs    int    // Directives whose referenced file was absent from the store
}

// OutputSet maps relative file paths to their expansion results
type OutputSet map[string]ExpansionResult

// Paths returns all output paths sorted alphabetically
func (set OutputSet) Paths() []string {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// RunSummary represents the aggregate result of one expansion run
type RunSummary struct {
	ID             string        // Unique run identifier
	StartedAt      time.Time     // Wall clock time the run began
	SourceRoot     string        // Directory the scan walked
	OutputRoot     string        // Directory results were written under
	Pattern        string        // Directive pattern used for the run
	MaxDepth       int           // Substitution pass limit per file
	Extensions     []string      // Extension filter, empty means all files
	FilesScanned   int           // Files captured into the content store
	FilesExpanded  int           // Files with at least one substitution
	FilesWritten   int           // Files successfully written
	WriteFailures  int           // Files that could not be written
	DepthExhausted int           // Files that hit the pass limit
	MissingRefs    int           // Directives referencing absent files
	Duration       time.Duration // Total run duration
}
