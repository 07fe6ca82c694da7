package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for graft
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graft",
		Short: "Resolve include directives across a tree of text files",
		Long: `Graft rebuilds a tree of text files with their include directives resolved.

It scans a source tree, replaces #include "path" directives with the
contents of the referenced files over repeated passes, and writes the
expanded files to an output directory mirroring the source layout.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewGraphCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
