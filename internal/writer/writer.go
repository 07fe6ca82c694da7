// Package writer persists an expanded output set to disk, mirroring each
// entry's relative path under the output root.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/graft/internal/filelock"
	"github.com/harrison/graft/internal/models"
)

// ErrInvalidPath reports a directory path that cannot be created because
// walking its parents never reaches an existing ancestor.
var ErrInvalidPath = errors.New("writer: invalid path")

// Logger is the logging surface the writer reports through.
type Logger interface {
	LogDebug(message string)
	LogError(message string)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogError(string) {}

// Result holds the outcome of a write phase.
type Result struct {
	Written int // Files written successfully
	Failed  int // Files skipped after a write failure
}

// WriteSet writes every output entry to <outRoot>/<relative path>, in
// sorted path order. The whole phase holds an advisory lock on
// <outRoot>.lock so concurrent runs cannot interleave partial trees; a held
// lock is a fatal error before anything is written. A single entry failing
// to write is reported and skipped without aborting the remaining entries.
func WriteSet(outRoot string, set models.OutputSet, log Logger) (*Result, error) {
	if log == nil {
		log = nopLogger{}
	}

	if err := EnsureDir(outRoot); err != nil {
		return nil, fmt.Errorf("failed to create output root %s: %w", outRoot, err)
	}

	lock := filelock.NewFileLock(outRoot + ".lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("output directory %s is locked by another run", outRoot)
	}
	defer lock.Unlock()

	result := &Result{}
	for _, rel := range set.Paths() {
		target := filepath.Join(outRoot, filepath.FromSlash(rel))

		if err := writeFile(target, set[rel].Content); err != nil {
			log.LogError(fmt.Sprintf("Couldn't open %s for writing.", target))
			log.LogDebug(err.Error())
			result.Failed++
			continue
		}

		log.LogDebug("wrote " + target)
		result.Written++
	}

	return result, nil
}

func writeFile(path, content string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return filelock.AtomicWrite(path, []byte(content))
}

// EnsureDir creates dir and any missing parents. Unlike os.MkdirAll it
// walks upward iteratively, collecting missing directories until it finds
// an existing ancestor, then creates them top-down. An empty path, or a
// path whose parent resolves to itself before any ancestor exists, fails
// with ErrInvalidPath.
func EnsureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty directory path", ErrInvalidPath)
	}

	var missing []string
	current := dir
	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s exists and is not a directory", current)
			}
			break
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return fmt.Errorf("%w: %s has no existing ancestor", ErrInvalidPath, dir)
		}
		missing = append(missing, current)
		current = parent
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("failed to create directory %s: %w", missing[i], err)
		}
	}
	return nil
}
