package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title: "Configuration Missing",
	}

	w.Display(&buf)

	output := buf.String()

	// Should contain yellow color code
	if !strings.Contains(output, "\x1b[33m") {
		t.Error("Expected yellow ANSI color code in output")
	}

	// Should contain warning emoji
	if !strings.Contains(output, "⚠️") {
		t.Error("Expected warning emoji ⚠️ in output")
	}

	// Should contain title
	if !strings.Contains(output, "Configuration Missing") {
		t.Error("Expected title in output")
	}

	// Should end with reset code
	if !strings.Contains(output, "\x1b[0m") {
		t.Error("Expected ANSI reset code in output")
	}
}

func TestDisplayWarning_WithMessage(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title:   "Deprecated Setting",
		Message: "Setting 'out' was renamed to 'out_dir'",
	}

	w.Display(&buf)

	output := buf.String()

	// Should contain title
	if !strings.Contains(output, "Deprecated Setting") {
		t.Error("Expected title in output")
	}

	// Should contain message with indentation
	if !strings.Contains(output, "    Setting 'out' was renamed to 'out_dir'") {
		t.Error("Expected indented message in output")
	}

	// Should contain yellow color
	if !strings.Contains(output, "\x1b[33m") {
		t.Error("Expected yellow ANSI color code in output")
	}
}

func TestDisplayWarning_WithFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantText string
	}{
		{
			name:     "single file",
			files:    []string{"config.yaml"},
			wantText: "Affected file:",
		},
		{
			name:     "multiple files",
			files:    []string{"intro.md", "docs/guide.md", "outro.md"},
			wantText: "Affected files:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := Warning{
				Title: "Invalid Configuration",
				Files: tt.files,
			}

			w.Display(&buf)

			output := buf.String()

			// Should use singular/plural correctly
			if !strings.Contains(output, tt.wantText) {
				t.Errorf("Expected %q in output, got: %s", tt.wantText, output)
			}

			// Should list each file with indentation and numbering
			for i, file := range tt.files {
				expected := strings.Repeat(" ", 6) + (string(rune('1' + i))) + ". " + file
				if !strings.Contains(output, expected) {
					t.Errorf("Expected file entry %q in output, got: %s", expected, output)
				}
			}

			// Should contain yellow color
			if !strings.Contains(output, "\x1b[33m") {
				t.Error("Expected yellow ANSI color code in output")
			}
		})
	}
}

func TestDisplayWarning_WithSuggestion(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title:      "Output Directory Locked",
		Suggestion: "Wait for the other run to finish or remove the stale lock file",
	}

	w.Display(&buf)

	output := buf.String()

	// Should contain title
	if !strings.Contains(output, "Output Directory Locked") {
		t.Error("Expected title in output")
	}

	// Should contain suggestion with indentation
	if !strings.Contains(output, "    Wait for the other run to finish or remove the stale lock file") {
		t.Error("Expected indented suggestion in output")
	}

	// Should have "Suggestion:" label
	if !strings.Contains(output, "Suggestion:") {
		t.Error("Expected 'Suggestion:' label in output")
	}

	// Should contain yellow color
	if !strings.Contains(output, "\x1b[33m") {
		t.Error("Expected yellow ANSI color code in output")
	}
}

func TestDisplayWarning_Complete(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title:      "Unresolved include references",
		Message:    "2 references point at files missing from the source tree",
		Files:      []string{"docs/guide.md", "docs/appendix.md"},
		Suggestion: "Run 'graft validate' to list every unresolved reference.",
	}

	w.Display(&buf)

	output := buf.String()

	// Should contain all components
	components := []string{
		"⚠️",
		"Unresolved include references",
		"    2 references point at files missing from the source tree",
		"    Affected files:",
		"      1. docs/guide.md",
		"      2. docs/appendix.md",
		"    Suggestion:",
		"    Run 'graft validate' to list every unresolved reference.",
		"\x1b[33m", // Yellow color
		"\x1b[0m",  // Reset
	}

	for _, component := range components {
		if !strings.Contains(output, component) {
			t.Errorf("Expected component %q in output, got: %s", component, output)
		}
	}
}

func TestDisplayWarning_YellowColor(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title: "Test Warning",
	}

	w.Display(&buf)

	output := buf.String()

	// Should start with yellow color code
	if !strings.HasPrefix(output, "\x1b[33m") {
		t.Error("Expected output to start with yellow ANSI color code \\x1b[33m")
	}

	// Should contain warning emoji
	if !strings.Contains(output, "⚠️") {
		t.Error("Expected warning emoji ⚠️ in output")
	}

	// Should end with reset code
	if !strings.HasSuffix(strings.TrimSpace(output), "\x1b[0m") {
		t.Error("Expected output to end with ANSI reset code \\x1b[0m")
	}
}

func TestWarnDepthExhausted(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		maxDepth int
		wantMsg  string
	}{
		{
			name:     "single file",
			files:    []string{"self.md"},
			maxDepth: 5,
			wantMsg:  "1 file(s) still contained include directives after 5 passes.",
		},
		{
			name:     "multiple files",
			files:    []string{"a.md", "b.md", "c.md"},
			maxDepth: 2,
			wantMsg:  "3 file(s) still contained include directives after 2 passes.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WarnDepthExhausted(tt.files, tt.maxDepth)

			if w.Title != "Maximum inclusion depth reached" {
				t.Errorf("unexpected title %q", w.Title)
			}
			if w.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, w.Message)
			}
			if len(w.Files) != len(tt.files) {
				t.Errorf("Expected %d files, got %d", len(tt.files), len(w.Files))
			}

			// Should preserve file order
			for i, file := range tt.files {
				if w.Files[i] != file {
					t.Errorf("Expected file[%d] to be %q, got %q", i, file, w.Files[i])
				}
			}

			// Should be displayable
			var buf bytes.Buffer
			w.Display(&buf)
			if !strings.Contains(buf.String(), "max_depth") {
				t.Error("Expected suggestion mentioning max_depth")
			}
		})
	}
}

func TestWarnMissingIncludes(t *testing.T) {
	w := WarnMissingIncludes(4, []string{"docs/guide.md"})

	if w.Title != "Unresolved include references" {
		t.Errorf("unexpected title %q", w.Title)
	}
	if !strings.Contains(w.Message, "4 reference(s)") {
		t.Errorf("Expected reference count in message, got %q", w.Message)
	}
	if len(w.Files) != 1 || w.Files[0] != "docs/guide.md" {
		t.Errorf("unexpected files %v", w.Files)
	}

	var buf bytes.Buffer
	w.Display(&buf)
	if !strings.Contains(buf.String(), "graft validate") {
		t.Error("Expected suggestion mentioning graft validate")
	}
}
