package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/graft/internal/config"
	"github.com/harrison/graft/internal/history"
	"github.com/harrison/graft/internal/models"
)

// NewHistoryCommand creates the 'graft history' command
func NewHistoryCommand() *cobra.Command {
	var limit int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run history",
		Long: `Show runs recorded in the history database, newest first.

Each run lists when it started, what was scanned and written, and how
it ended. Use 'graft history show <run-id>' for per-file detail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, limit, dbPath)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	// Add subcommands
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

// newHistoryShowCommand creates the 'graft history show' command
func newHistoryShowCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-file detail of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0], dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// newHistoryClearCommand creates the 'graft history clear' command
func newHistoryClearCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryList executes the history list command
func runHistoryList(cmd *cobra.Command, limit int, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := resolveHistoryDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded.\n")
		return nil
	}

	// Colors
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(output, "\n=== Run History ===\n\n")
	for i, run := range runs {
		if i > 0 {
			fmt.Fprintf(output, "\n")
		}
		printRunSummary(output, run)
	}

	return nil
}

// runHistoryShow executes the history show command
func runHistoryShow(cmd *cobra.Command, runID string, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := resolveHistoryDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	run, err := store.Run(cmd.Context(), runID)
	if err != nil {
		return err
	}
	files, err := store.RunFiles(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load run files: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(output, "\n=== Run %s ===\n\n", run.ID)
	printRunSummary(output, *run)
	fmt.Fprintf(output, "  Pattern: %s\n", run.Pattern)
	fmt.Fprintf(output, "  Max depth: %d\n", run.MaxDepth)
	if len(run.Extensions) > 0 {
		fmt.Fprintf(output, "  Extensions: %s\n", strings.Join(run.Extensions, ", "))
	}

	if len(files) > 0 {
		fmt.Fprintf(output, "\n")
		cyan.Fprintf(output, "Files:\n")
		for _, file := range files {
			fmt.Fprintf(output, "  %s (%s)\n", file.Path, fileStatus(file))
		}
	}

	return nil
}

// runHistoryClear executes the history clear command
func runHistoryClear(cmd *cobra.Command, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := resolveHistoryDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	// Confirm clearing all data
	fmt.Fprintf(output, "WARNING: This will delete ALL run history from the database.\n")
	if !confirmAction(output) {
		fmt.Fprintf(output, "Operation cancelled.\n")
		return nil
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	deleted, err := store.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	// Report results
	runText := "run"
	if deleted != 1 {
		runText = "runs"
	}
	fmt.Fprintf(output, "Deleted %d %s.\n", deleted, runText)

	return nil
}

// printRunSummary writes the one-run block shared by list and show
func printRunSummary(output io.Writer, run models.RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(output, "%s\n", run.ID)
	fmt.Fprintf(output, "  Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(output, "  Tree: %s -> %s\n", run.SourceRoot, run.OutputRoot)
	fmt.Fprintf(output, "  Files: %d scanned, %d expanded, %d written\n",
		run.FilesScanned, run.FilesExpanded, run.FilesWritten)

	fmt.Fprintf(output, "  Status: ")
	switch {
	case run.WriteFailures > 0 && run.FilesWritten == 0:
		red.Fprintf(output, "FAILED")
	case run.WriteFailures > 0:
		yellow.Fprintf(output, "PARTIAL")
	default:
		green.Fprintf(output, "SUCCESS")
	}
	if run.MissingRefs > 0 || run.DepthExhausted > 0 {
		fmt.Fprintf(output, " (%d missing ref(s), %d depth exhausted)", run.MissingRefs, run.DepthExhausted)
	}
	fmt.Fprintf(output, "\n")

	fmt.Fprintf(output, "  Duration: %s\n", run.Duration.Round(time.Millisecond))
}

// fileStatus describes one recorded file the way dry-run output does
func fileStatus(file history.FileRecord) string {
	if !file.Substituted {
		return "unchanged"
	}
	status := fmt.Sprintf("expanded, %d passes", file.Passes)
	if file.DepthExhausted {
		status += ", depth exhausted"
	}
	if file.MissingRefs > 0 {
		status += fmt.Sprintf(", %d missing ref(s)", file.MissingRefs)
	}
	return status
}

// resolveHistoryDBPath picks the database path: the test override when
// set, otherwise whatever the config resolves to
func resolveHistoryDBPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.History.DBPath, nil
}

// confirmAction prompts the user for confirmation
func confirmAction(output interface{}) bool {
	// Create scanner for stdin
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Fprintf(output.(interface{ Write(p []byte) (n int, err error) }), "Continue? [y/N]: ")

	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
