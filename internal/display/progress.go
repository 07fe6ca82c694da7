package display

import (
	"fmt"
	"io"
)

// ProgressIndicator manages multi-step progress display with ANSI colors
type ProgressIndicator struct {
	writer     io.Writer
	totalFiles int
	current    int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		totalFiles: total,
		current:    0,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Expanding source files:\n")
}

// Step displays progress for current item: [N/Total] path (cyan).
// The path is shown as given; relative paths are how files are
// identified throughout a run, so they are not shortened here.
func (p *ProgressIndicator) Step(path string) {
	p.current++
	// Output with cyan ANSI around entire line for visibility
	fmt.Fprintf(p.writer, "\x1b[36m  [%d/%d] %s\x1b[0m\n", p.current, p.totalFiles, path)
}

// Complete displays success message with green checkmark
func (p *ProgressIndicator) Complete() {
	fmt.Fprintf(p.writer, "\x1b[32m✓\x1b[0m Expanded %d files\n", p.totalFiles)
}

// DisplayScanStart shows the scan message for a source root
func DisplayScanStart(w io.Writer, root string) {
	fmt.Fprintf(w, "Scanning %s...\n", root)
}
