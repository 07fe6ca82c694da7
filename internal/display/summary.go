package display

import (
	"fmt"
	"io"
	"time"

	"github.com/harrison/graft/internal/models"
)

// DisplayRunComplete shows the final success line for a run: green
// checkmark, file count, output root, and rounded elapsed time
func DisplayRunComplete(w io.Writer, summary models.RunSummary) {
	fmt.Fprintf(w, "\x1b[32m✓\x1b[0m Wrote %d files to %s in %s\n",
		summary.FilesWritten, summary.OutputRoot, summary.Duration.Round(time.Millisecond))
}

// DisplayDryRun lists what a run would have written without touching disk.
// Files are listed in sorted path order so output is stable across runs.
func DisplayDryRun(w io.Writer, outRoot string, set models.OutputSet) {
	fmt.Fprintf(w, "Dry run: %d files would be written to %s\n", len(set), outRoot)
	for _, path := range set.Paths() {
		result := set[path]
		status := "unchanged"
		if result.Substituted {
			status = fmt.Sprintf("expanded, %d passes", result.Passes)
		}
		if result.DepthExhausted {
			status += ", depth exhausted"
		}
		fmt.Fprintf(w, "  %s (%s)\n", path, status)
	}
}
