package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/graft/internal/config"
	"github.com/harrison/graft/internal/display"
	"github.com/harrison/graft/internal/history"
	"github.com/harrison/graft/internal/logger"
	"github.com/harrison/graft/internal/models"
	"github.com/harrison/graft/internal/resolver"
	"github.com/harrison/graft/internal/scanner"
	"github.com/harrison/graft/internal/writer"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Expand include directives and write the result tree",
		Long: `Expand include directives across the source tree and write the expanded
files to the output directory.

Every file under the source tree is scanned. Directives matching the
configured pattern are replaced with the contents of the file they
reference, repeatedly, until nothing is left to substitute or the
maximum pass count is reached. Expanded files are written to the output
directory under the same relative paths.

Configuration is loaded from .graft/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Expand the current directory into out/
  graft run --out out

  # Expand only markdown files from docs/ into build/
  graft run --src docs --out build --ext md,markdown

  # Use a custom directive pattern and pass limit
  graft run --out out --regex '@include "([\w./%]*)"' --max-depth 10

  # Other options
  graft run --out out --dry-run          # Resolve without writing
  graft run --out out --verbose          # Show per-file detail
  graft run --out out --log-dir ./logs   # Use custom log directory
  graft run --out out --config alt.yaml  # Use custom config file
  graft run --out out --no-history       # Skip the history database`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	// Add flags
	cmd.Flags().String("config", "", "Path to config file (default: .graft/config.yaml)")
	cmd.Flags().StringP("out", "o", "", "Directory expanded files are written to")
	cmd.Flags().String("src", "", "Root of the source tree to scan")
	cmd.Flags().StringP("regex", "r", "", "Include directive pattern; the first capture group is the referenced path")
	cmd.Flags().IntP("max-depth", "d", -1, "Maximum substitution passes per file (-1 = use config)")
	cmd.Flags().StringP("ext", "e", "", "Comma-separated file extensions to scan (default: all files)")
	cmd.Flags().Bool("dry-run", false, "Resolve includes without writing any files")
	cmd.Flags().Bool("verbose", false, "Show detailed execution information")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	started := time.Now()
	out := cmd.OutOrStdout()

	// Load configuration from file
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		// Load from explicit config path
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		// Load from default .graft/config.yaml
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Get flag values
	outFlag, _ := cmd.Flags().GetString("out")
	srcFlag, _ := cmd.Flags().GetString("src")
	regexFlag, _ := cmd.Flags().GetString("regex")
	maxDepthFlag, _ := cmd.Flags().GetInt("max-depth")
	extFlag, _ := cmd.Flags().GetString("ext")
	logDirFlag, _ := cmd.Flags().GetString("log-dir")
	noHistoryFlag, _ := cmd.Flags().GetBool("no-history")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Build flag pointers for merge (only values the user set)
	var outPtr *string
	if cmd.Flags().Changed("out") {
		outPtr = &outFlag
	}

	var srcPtr *string
	if cmd.Flags().Changed("src") {
		srcPtr = &srcFlag
	}

	var regexPtr *string
	if cmd.Flags().Changed("regex") {
		regexPtr = &regexFlag
	}

	var maxDepthPtr *int
	if cmd.Flags().Changed("max-depth") {
		maxDepthPtr = &maxDepthFlag
	}

	var extPtr *[]string
	if cmd.Flags().Changed("ext") {
		exts := splitExtensions(extFlag)
		extPtr = &exts
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		logDirPtr = &logDirFlag
	}

	var noHistoryPtr *bool
	if cmd.Flags().Changed("no-history") {
		noHistoryPtr = &noHistoryFlag
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(outPtr, srcPtr, regexPtr, maxDepthPtr, extPtr, logDirPtr, noHistoryPtr)

	// Validate merged configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	// Determine log level: verbose flag overrides config
	logLevel := cfg.LogLevel
	if verbose {
		logLevel = "debug"
	}

	// Console logger for real-time progress
	consoleLog := logger.NewConsoleLogger(out, logLevel)
	logs := []logger.Logger{consoleLog}

	// File logger for detailed logs (skipped in dry-run mode)
	var fileLog *logger.FileLogger
	if !dryRun {
		fileLog, err = logger.NewFileLogger(cfg.LogDir, logLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		logs = append(logs, fileLog)
	}

	multiLog := &multiLogger{loggers: logs}

	// Scan the source tree
	display.DisplayScanStart(out, cfg.SourceDir)
	scanResult, err := scanner.Scan(scanner.Options{
		Root:       cfg.SourceDir,
		Extensions: cfg.Extensions,
	}, multiLog)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	store := scanResult.Store
	if len(store) == 0 {
		fmt.Fprintf(out, "No source files found under %s.\n", cfg.SourceDir)
		return nil
	}

	// Expand every file, in sorted path order
	res := resolver.New(store, pattern, cfg.MaxDepth, multiLog)
	progress := display.NewProgressIndicator(out, len(store))
	progress.Start()

	outputs := models.OutputSet{}
	for _, path := range store.Paths() {
		progress.Step(path)
		outputs[path] = res.Resolve(path)
	}
	progress.Complete()

	// Collect expansion statistics
	expanded := 0
	missingRefs := 0
	var exhaustedPaths []string
	var missingPaths []string
	for _, path := range outputs.Paths() {
		result := outputs[path]
		if result.Substituted {
			expanded++
		}
		if result.DepthExhausted {
			exhaustedPaths = append(exhaustedPaths, path)
		}
		if result.MissingRefs > 0 {
			missingRefs += result.MissingRefs
			missingPaths = append(missingPaths, path)
		}
	}

	if len(exhaustedPaths) > 0 {
		display.WarnDepthExhausted(exhaustedPaths, cfg.MaxDepth).Display(out)
	}
	if missingRefs > 0 {
		display.WarnMissingIncludes(missingRefs, missingPaths).Display(out)
	}

	// Dry-run mode: report what would be written and stop
	if dryRun {
		fmt.Fprintf(out, "\n")
		display.DisplayDryRun(out, cfg.OutDir, outputs)
		return nil
	}

	// Write the expanded tree
	writeResult, err := writer.WriteSet(cfg.OutDir, outputs, multiLog)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	summary := models.RunSummary{
		ID:             uuid.New().String(),
		StartedAt:      started,
		SourceRoot:     cfg.SourceDir,
		OutputRoot:     cfg.OutDir,
		Pattern:        cfg.Pattern,
		MaxDepth:       cfg.MaxDepth,
		Extensions:     cfg.Extensions,
		FilesScanned:   len(store),
		FilesExpanded:  expanded,
		FilesWritten:   writeResult.Written,
		WriteFailures:  writeResult.Failed,
		DepthExhausted: len(exhaustedPaths),
		MissingRefs:    missingRefs,
		Duration:       time.Since(started),
	}

	fileLog.LogRunSummary(summary)
	recordHistory(cmd, cfg, summary, outputs, multiLog)

	if writeResult.Failed > 0 {
		fmt.Fprintf(out, "\nRun completed with %d failed write(s).\n", writeResult.Failed)
		return fmt.Errorf("%d file(s) failed to write", writeResult.Failed)
	}

	display.DisplayRunComplete(out, summary)
	fmt.Fprintf(out, "Logs written to: %s\n", fileLog.RunLogPath())

	return nil
}

// recordHistory persists the run to the history database. History failures
// never fail the run, they are logged and skipped.
func recordHistory(cmd *cobra.Command, cfg *config.Config, summary models.RunSummary, outputs models.OutputSet, log logger.Logger) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("history not recorded: %v", err))
		return
	}
	defer store.Close()

	files := make([]models.ExpansionResult, 0, len(outputs))
	for _, path := range outputs.Paths() {
		files = append(files, outputs[path])
	}

	if err := store.RecordRun(cmd.Context(), summary, files); err != nil {
		log.LogWarn(fmt.Sprintf("history not recorded: %v", err))
		return
	}

	if cfg.History.KeepRuns > 0 {
		if _, err := store.Prune(cmd.Context(), cfg.History.KeepRuns); err != nil {
			log.LogWarn(fmt.Sprintf("history not pruned: %v", err))
		}
	}
}

// splitExtensions parses a comma-separated extension list
func splitExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			exts = append(exts, part)
		}
	}
	return exts
}

// multiLogger fans leveled log lines out to every configured logger
type multiLogger struct {
	loggers []logger.Logger
}

// LogTrace forwards to all loggers
func (ml *multiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

// LogError forwards to all loggers
func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}
