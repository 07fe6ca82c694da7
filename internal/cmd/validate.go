package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"github.com/harrison/graft/internal/config"
	"github.com/harrison/graft/internal/logger"
	"github.com/harrison/graft/internal/models"
	"github.com/harrison/graft/internal/resolver"
	"github.com/harrison/graft/internal/scanner"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Check that every include directive in the source tree resolves",
		Long: `Scan the source tree and validate it without writing anything, checking for:
  - Pattern captures exactly one path group
  - Every include directive references a file that exists
  - Every file resolves within the configured pass limit

Supports two input modes:
  - Whole tree: graft validate
  - Specific files: graft validate docs/guide.md docs/api.md

Paths are relative to the source root.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateCommand(cmd, args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .graft/config.yaml)")
	cmd.Flags().String("src", "", "Root of the source tree to scan")
	cmd.Flags().StringP("regex", "r", "", "Include directive pattern to validate against")
	cmd.Flags().IntP("max-depth", "d", -1, "Maximum substitution passes per file (-1 = use config)")
	cmd.Flags().StringP("ext", "e", "", "Comma-separated file extensions to scan (default: all files)")

	return cmd
}

// validateCommand validates the source tree with custom output writer (for testing)
func validateCommand(cmd *cobra.Command, args []string, output io.Writer) error {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	srcFlag, _ := cmd.Flags().GetString("src")
	regexFlag, _ := cmd.Flags().GetString("regex")
	maxDepthFlag, _ := cmd.Flags().GetInt("max-depth")
	extFlag, _ := cmd.Flags().GetString("ext")

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

	cfg.MergeWithFlags(nil, srcPtr, regexPtr, maxDepthPtr, extPtr, nil, nil)

	// Validation never writes, so the full config check (which requires
	// out_dir) does not apply. Check only what this command uses.
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", cfg.MaxDepth)
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	var errors []string

	// Check the pattern captures exactly one group. A run with a
	// mismatched pattern silently expands nothing, so validate flags it.
	patternOK := pattern.NumSubexp() == 1
	if patternOK {
		fmt.Fprintf(output, "✓ Pattern captures exactly one path group\n")
	} else {
		errors = append(errors, fmt.Sprintf("pattern must have exactly one capture group, found %d", pattern.NumSubexp()))
		fmt.Fprintf(output, "✗ Pattern capture group mismatch\n")
	}

	// Read errors still surface through the error-level logger, warnings
	// from individual passes are suppressed and reported once at the end.
	scanLog := logger.NewConsoleLogger(output, "error")
	scanResult, err := scanner.Scan(scanner.Options{
		Root:       cfg.SourceDir,
		Extensions: cfg.Extensions,
	}, scanLog)
	if err != nil {
		fmt.Fprintf(output, "✗ Failed to scan %s\n", cfg.SourceDir)
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, scanErr := range scanResult.Errors {
		errors = append(errors, fmt.Sprintf("scan: %v", scanErr))
	}

	store := scanResult.Store
	if len(store) == 0 {
		fmt.Fprintf(output, "✗ No source files found under %s\n", cfg.SourceDir)
		return fmt.Errorf("no source files found under %s", cfg.SourceDir)
	}
	fmt.Fprintf(output, "\x1b[32m✓\x1b[0m Scanned %d source files under %s\n", len(store), cfg.SourceDir)

	// Resolve the target list: explicit paths, or the whole tree
	targets := store.Paths()
	if len(args) > 0 {
		targets = targets[:0]
		for _, arg := range args {
			path := filepath.ToSlash(arg)
			if !store.Contains(path) {
				errors = append(errors, fmt.Sprintf("%s: not found under %s", path, cfg.SourceDir))
				continue
			}
			targets = append(targets, path)
		}
		sort.Strings(targets)
	}

	// Reference and depth checks need the capture group to extract paths,
	// so a mismatched pattern skips them.
	if patternOK {
		// Static check: every referenced path must exist in the store
		directives := 0
		withDirectives := 0
		missing := 0
		for _, path := range targets {
			refs := resolver.ExtractRefs(store[path], pattern)
			if len(refs) > 0 {
				withDirectives++
			}
			directives += len(refs)
			for _, ref := range refs {
				if !store.Contains(ref) {
					errors = append(errors, fmt.Sprintf("%s: include %q does not exist", path, ref))
					missing++
				}
			}
		}
		fmt.Fprintf(output, "✓ Found %d include directive(s) in %d file(s)\n", directives, withDirectives)
		if missing == 0 {
			fmt.Fprintf(output, "✓ All include references resolve\n")
		} else {
			fmt.Fprintf(output, "✗ Found %d unresolved include reference(s)\n", missing)
		}

		// Dynamic check: every file must settle within the pass limit
		exhausted := validateDepth(store, pattern, cfg.MaxDepth, targets, len(args) > 0)
		if len(exhausted) == 0 {
			fmt.Fprintf(output, "✓ All files resolve within %d passes\n", cfg.MaxDepth)
		} else {
			for _, path := range exhausted {
				errors = append(errors, fmt.Sprintf("%s: inclusion depth exceeds %d passes", path, cfg.MaxDepth))
			}
			fmt.Fprintf(output, "✗ %d file(s) exceed the pass limit\n", len(exhausted))
		}
	}

	// Final validation check
	if len(errors) == 0 {
		fmt.Fprintf(output, "\n✓ Source tree is valid!\n")
		return nil
	}

	// Report all validation errors
	fmt.Fprintf(output, "\n✗ Validation failed\n")
	for _, errMsg := range errors {
		fmt.Fprintf(output, "  ✗ %s\n", errMsg)
	}
	fmt.Fprintf(output, "\nFound %d validation error(s)!\n", len(errors))

	return fmt.Errorf("validation failed with %d error(s)", len(errors))
}

// validateDepth resolves the targets and returns the paths that still
// contained directives when the pass limit ran out, sorted.
func validateDepth(store models.ContentStore, pattern *regexp.Regexp, maxDepth int, targets []string, restricted bool) []string {
	res := resolver.New(store, pattern, maxDepth, logger.NewNoOpLogger())

	var exhausted []string
	if restricted {
		for _, path := range targets {
			if res.Resolve(path).DepthExhausted {
				exhausted = append(exhausted, path)
			}
		}
		return exhausted
	}

	outputs := res.ResolveAll()
	for _, path := range outputs.Paths() {
		if outputs[path].DepthExhausted {
			exhausted = append(exhausted, path)
		}
	}
	return exhausted
}
