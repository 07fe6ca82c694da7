package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/graft/internal/models"
)

// FileLogger logs run events to timestamped files in the log directory.
// It creates one run-YYYYMMDD-HHMMSS.log per run and maintains a latest.log
// symlink pointing to the most recent one. It is thread-safe and supports
// the same level filtering as ConsoleLogger.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing under logDir, creating the
// directory if needed. logLevel follows the same rules as NewConsoleLogger.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Timestamped filename: run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	// Create/update the latest.log symlink
	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
		mu:       sync.Mutex{},
	}

	logger.writeRunLog("=== Graft Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunLogPath returns the path of this run's log file.
func (fl *FileLogger) RunLogPath() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}

	formatted := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message)
	fl.writeRunLog(formatted)
}

// LogRunSummary writes the end-of-run statistics block at INFO level.
func (fl *FileLogger) LogRunSummary(summary models.RunSummary) {
	if !fl.shouldLog("info") {
		return
	}

	timestamp := time.Now().Format("15:04:05")

	status := "SUCCESS"
	if summary.WriteFailures > 0 {
		if summary.FilesWritten == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Run ID:          %s\n"+
			"[%s] Files scanned:   %d\n"+
			"[%s] Files expanded:  %d\n"+
			"[%s] Files written:   %d\n"+
			"[%s] Depth exhausted: %d\n"+
			"[%s] Missing refs:    %d\n"+
			"[%s] Total time:      %.1fs\n"+
			"[%s] Status:          %s\n"+
			"[%s] Completed at:    %s\n",
		timestamp,
		timestamp,
		summary.ID,
		timestamp,
		summary.FilesScanned,
		timestamp,
		summary.FilesExpanded,
		timestamp,
		summary.FilesWritten,
		timestamp,
		summary.DepthExhausted,
		timestamp,
		summary.MissingRefs,
		timestamp,
		summary.Duration.Seconds(),
		timestamp,
		status,
		timestamp,
		time.Now().Format(time.RFC3339),
	)

	fl.writeRunLog(message)
}

// writeRunLog writes raw text to the run log under the mutex.
func (fl *FileLogger) writeRunLog(text string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return
	}
	fl.runLog.WriteString(text)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}

	err := fl.runLog.Close()
	fl.runLog = nil
	if err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}
