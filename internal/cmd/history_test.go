package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/graft/internal/history"
	"github.com/harrison/graft/internal/models"
)

// Helper function to execute history command with args
func executeHistoryCommand(t *testing.T, args []string) (string, error) {
	t.Helper()

	rootCmd := &cobra.Command{Use: "graft"}
	historyCmd := NewHistoryCommand()
	rootCmd.AddCommand(historyCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func recordedRun(id string, startedAt time.Time) models.RunSummary {
	return models.RunSummary{
		ID:            id,
		StartedAt:     startedAt,
		SourceRoot:    "docs",
		OutputRoot:    "build",
		Pattern:       `#include "([\w./%]*)"`,
		MaxDepth:      5,
		FilesScanned:  2,
		FilesExpanded: 1,
		FilesWritten:  2,
		Duration:      1500 * time.Millisecond,
	}
}

// Helper seeding a history database with runs and a fixed file set
func seedHistory(t *testing.T, dbPath string, runs ...models.RunSummary) {
	t.Helper()

	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create history store: %v", err)
	}
	defer store.Close()

	files := []models.ExpansionResult{
		{Path: "a.md", Passes: 2, Substituted: true},
		{Path: "b.md", Passes: 1},
	}
	for _, run := range runs {
		if err := store.RecordRun(context.Background(), run, files); err != nil {
			t.Fatalf("Failed to record run %s: %v", run.ID, err)
		}
	}
}

func TestHistoryCommand_ListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedHistory(t, dbPath,
		recordedRun("run-1", base),
		recordedRun("run-2", base.Add(time.Minute)),
	)

	output, err := executeHistoryCommand(t, []string{"history", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History failed: %v\noutput: %s", err, output)
	}

	if !strings.Contains(output, "=== Run History ===") {
		t.Errorf("Expected history header, got: %s", output)
	}
	if !strings.Contains(output, "run-1") || !strings.Contains(output, "run-2") {
		t.Errorf("Expected both runs listed, got: %s", output)
	}
	if !strings.Contains(output, "Files: 2 scanned, 1 expanded, 2 written") {
		t.Errorf("Expected file counts, got: %s", output)
	}
	if !strings.Contains(output, "Status: SUCCESS") {
		t.Errorf("Expected status line, got: %s", output)
	}

	// Newest first
	if strings.Index(output, "run-2") > strings.Index(output, "run-1") {
		t.Errorf("Expected run-2 listed before run-1, got: %s", output)
	}
}

func TestHistoryCommand_LimitFlag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedHistory(t, dbPath,
		recordedRun("run-1", base),
		recordedRun("run-2", base.Add(time.Minute)),
		recordedRun("run-3", base.Add(2*time.Minute)),
	)

	output, err := executeHistoryCommand(t, []string{"history", "--db-path", dbPath, "--limit", "2"})
	if err != nil {
		t.Fatalf("History failed: %v\noutput: %s", err, output)
	}

	if !strings.Contains(output, "run-3") || !strings.Contains(output, "run-2") {
		t.Errorf("Expected the two newest runs, got: %s", output)
	}
	if strings.Contains(output, "run-1") {
		t.Errorf("Expected oldest run cut by limit, got: %s", output)
	}
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	output, err := executeHistoryCommand(t, []string{"history", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "No history database found at:") {
		t.Errorf("Expected missing database notice, got: %s", output)
	}
}

func TestHistoryCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath) // creates the schema, records nothing

	output, err := executeHistoryCommand(t, []string{"history", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "No runs recorded.") {
		t.Errorf("Expected empty history notice, got: %s", output)
	}
}

func TestHistoryShowCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath, recordedRun("run-1", time.Now()))

	output, err := executeHistoryCommand(t, []string{"history", "show", "run-1", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History show failed: %v\noutput: %s", err, output)
	}

	if !strings.Contains(output, "=== Run run-1 ===") {
		t.Errorf("Expected run header, got: %s", output)
	}
	if !strings.Contains(output, "Pattern: #include") {
		t.Errorf("Expected pattern line, got: %s", output)
	}
	if !strings.Contains(output, "a.md (expanded, 2 passes)") {
		t.Errorf("Expected expanded file detail, got: %s", output)
	}
	if !strings.Contains(output, "b.md (unchanged)") {
		t.Errorf("Expected unchanged file detail, got: %s", output)
	}
}

func TestHistoryShowCommand_UnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath, recordedRun("run-1", time.Now()))

	_, err := executeHistoryCommand(t, []string{"history", "show", "no-such-run", "--db-path", dbPath})
	if err == nil {
		t.Fatal("Expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestHistoryClearCommand_CancelledWithoutConfirmation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath, recordedRun("run-1", time.Now()))

	// Test stdin provides no confirmation, so the prompt falls through to no
	output, err := executeHistoryCommand(t, []string{"history", "clear", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History clear failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Operation cancelled.") {
		t.Errorf("Expected cancellation notice, got: %s", output)
	}

	// Nothing was deleted
	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()
	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("Failed to load runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected run to survive cancelled clear, got %d runs", len(runs))
	}
}

func TestHistoryClearCommand_Confirmed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath,
		recordedRun("run-1", time.Now()),
		recordedRun("run-2", time.Now().Add(time.Minute)),
	)

	// Feed the confirmation prompt through a pipe
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	if _, err := w.WriteString("y\n"); err != nil {
		t.Fatalf("Failed to write confirmation: %v", err)
	}
	w.Close()

	oldStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()

	output, err := executeHistoryCommand(t, []string{"history", "clear", "--db-path", dbPath})
	if err != nil {
		t.Fatalf("History clear failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Deleted 2 runs.") {
		t.Errorf("Expected deletion report, got: %s", output)
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()
	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("Failed to load runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected empty history after clear, got %d runs", len(runs))
	}
}
