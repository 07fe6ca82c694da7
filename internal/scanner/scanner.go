// Package scanner walks a source tree and captures file contents into the
// content store the resolver expands against.
//
// The scan is deliberately unfiltered: every regular file below the root is
// captured unless an extension allow-list says otherwise. Hidden files and
// directories are not special-cased. Files that cannot be read are reported
// and skipped; only a missing or unusable root aborts the scan.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/graft/internal/models"
)

// Options configures a source tree scan.
type Options struct {
	Root       string   // Directory to walk
	Extensions []string // Extension allow-list without dots; empty admits every file
}

// Result holds the outcome of a scan.
type Result struct {
	Store  models.ContentStore // Captured file contents keyed by relative path
	Errors []error             // Non-fatal per-file errors encountered while scanning
}

// Logger is the logging surface the scanner reports through.
type Logger interface {
	LogDebug(message string)
	LogError(message string)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogError(string) {}

// Scan walks opts.Root and returns a content store of every matching file.
//
// Store keys are slash-separated paths relative to the root. Symlinks to
// regular files are followed; anything else (directories, sockets, dangling
// links) is skipped. A file that cannot be read is reported and omitted
// without failing the scan. A root that does not exist or is not a
// directory is a fatal error.
func Scan(opts Options, log Logger) (*Result, error) {
	if log == nil {
		log = nopLogger{}
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to access scan root %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", opts.Root)
	}

	allowed := normalizeExtensions(opts.Extensions)
	result := &Result{Store: models.ContentStore{}}

	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectory or entry; record it and keep walking
			// the rest of the tree.
			result.Errors = append(result.Errors, err)
			log.LogError(fmt.Sprintf("failed to scan %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if ftype := d.Type(); ftype&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				log.LogDebug("skipping symlink " + path)
				return nil
			}
		} else if !ftype.IsRegular() {
			return nil
		}

		if len(allowed) > 0 && !allowed[fileExtension(d.Name())] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.LogError(fmt.Sprintf("Couldn't open %s for reading.", path))
			result.Errors = append(result.Errors, err)
			return nil
		}

		rel, err := filepath.Rel(opts.Root, path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}

		key := filepath.ToSlash(rel)
		result.Store[key] = string(data)
		log.LogDebug(fmt.Sprintf("scanned %s (%d bytes)", key, len(data)))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", opts.Root, walkErr)
	}

	return result, nil
}

// normalizeExtensions builds the allow-list lookup. Entries may be given
// with or without a leading dot; empty entries are dropped. Matching stays
// case-sensitive.
func normalizeExtensions(extensions []string) map[string]bool {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		allowed[ext] = true
	}
	return allowed
}

// fileExtension returns name's extension without the leading dot, or ""
// when the name has none. A file without an extension never matches a
// non-empty allow-list.
func fileExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}
