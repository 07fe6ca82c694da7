// Package display provides terminal UI utilities for displaying progress, warnings, and status messages.
//
// This package centralizes all terminal output formatting, ANSI color codes, and user-facing display logic
// for the Graft CLI. It provides three main categories of functionality:
//
// # Progress Indicators
//
// Use ProgressIndicator for multi-step operations:
//
//	progress := display.NewProgressIndicator(os.Stdout, len(paths))
//	progress.Start()
//	for _, path := range paths {
//	    progress.Step(path)
//	    // ... expand file ...
//	}
//	progress.Complete()
//
// Before scanning a source tree:
//
//	display.DisplayScanStart(os.Stdout, srcRoot)
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Configuration Issue",
//	    Message:    "Setting 'pattern' does not compile",
//	    Files:      []string{".graft/config.yaml"},
//	    Suggestion: "Check the regular expression syntax",
//	}
//	warning.Display(os.Stderr)
//
// Or use the convenience factories for expansion warnings:
//
//	if len(exhausted) > 0 {
//	    display.WarnDepthExhausted(exhausted, maxDepth).Display(os.Stdout)
//	}
//	if missing > 0 {
//	    display.WarnMissingIncludes(missing, affected).Display(os.Stdout)
//	}
//
// # Run Summaries
//
// After a run completes:
//
//	display.DisplayRunComplete(os.Stdout, summary)
//
// Or preview without writing:
//
//	display.DisplayDryRun(os.Stdout, outRoot, outputs)
//
// # ANSI Colors
//
// The package uses ANSI escape codes for terminal colors:
//   - Cyan (\x1b[36m) for progress indicators
//   - Green (\x1b[32m) for success messages
//   - Yellow (\x1b[33m) for warnings
//   - Reset (\x1b[0m) after each colored section
//
// All functions accept io.Writer interfaces for testability and flexibility.
//
// # Design Principles
//
//   - Single source of truth for all display logic
//   - Consistent formatting across all commands
//   - Testable via io.Writer abstraction
//   - No global state or side effects
package display
