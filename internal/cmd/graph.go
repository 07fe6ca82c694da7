package cmd

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/ddddddO/gtree"
	"github.com/spf13/cobra"

	"github.com/harrison/graft/internal/config"
	"github.com/harrison/graft/internal/logger"
	"github.com/harrison/graft/internal/models"
	"github.com/harrison/graft/internal/resolver"
	"github.com/harrison/graft/internal/scanner"
)

// NewGraphCommand creates and returns the graph subcommand
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [path...]",
		Short: "Render the include reference tree of the source files",
		Long: `Render each source file's include references as a tree.

Every include directive becomes a child node, nested until the
directive chain bottoms out or the pass limit is reached. References
to files missing from the source tree are marked (missing).

Without arguments, every file containing at least one include
directive is rendered. With arguments, exactly the named files are
rendered. Paths are relative to the source root.`,
		Args: cobra.ArbitraryArgs,
		RunE: graphCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .graft/config.yaml)")
	cmd.Flags().String("src", "", "Root of the source tree to scan")
	cmd.Flags().StringP("regex", "r", "", "Include directive pattern; the first capture group is the referenced path")
	cmd.Flags().IntP("max-depth", "d", -1, "Maximum nesting levels to render (-1 = use config)")
	cmd.Flags().StringP("ext", "e", "", "Comma-separated file extensions to scan (default: all files)")

	return cmd
}

// graphCommand implements the graph command logic
func graphCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

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

	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", cfg.MaxDepth)
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	scanResult, err := scanner.Scan(scanner.Options{
		Root:       cfg.SourceDir,
		Extensions: cfg.Extensions,
	}, logger.NewConsoleLogger(out, "error"))
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	store := scanResult.Store
	if len(store) == 0 {
		fmt.Fprintf(out, "No source files found under %s.\n", cfg.SourceDir)
		return nil
	}

	// Resolve the root list: explicit paths, or every file with directives
	var roots []string
	if len(args) > 0 {
		for _, arg := range args {
			path := filepath.ToSlash(arg)
			if !store.Contains(path) {
				return fmt.Errorf("%s: not found under %s", path, cfg.SourceDir)
			}
			roots = append(roots, path)
		}
		sort.Strings(roots)
	} else {
		for _, path := range store.Paths() {
			if len(resolver.ExtractRefs(store[path], pattern)) > 0 {
				roots = append(roots, path)
			}
		}
		if len(roots) == 0 {
			fmt.Fprintf(out, "No include directives found under %s.\n", cfg.SourceDir)
			return nil
		}
	}

	for i, path := range roots {
		if i > 0 {
			fmt.Fprintln(out)
		}
		root := gtree.NewRoot(path)
		addIncludes(root, store, pattern, store[path], cfg.MaxDepth)
		if err := gtree.OutputProgrammably(out, root); err != nil {
			return fmt.Errorf("failed to render tree for %s: %w", path, err)
		}
	}

	return nil
}

// addIncludes adds a child node per include directive in content,
// recursing into referenced files. The depth bound mirrors the pass
// limit and keeps inclusion cycles from recursing forever.
func addIncludes(node *gtree.Node, store models.ContentStore, pattern *regexp.Regexp, content string, depth int) {
	if depth <= 0 {
		return
	}
	for _, ref := range resolver.ExtractRefs(content, pattern) {
		if !store.Contains(ref) {
			node.Add(ref + " (missing)")
			continue
		}
		child := node.Add(ref)
		addIncludes(child, store, pattern, store[ref], depth-1)
	}
}
