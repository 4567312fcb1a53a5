package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/fpang/proshot/internal/styles"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{95 * time.Second, "1:35"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.in); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintStyles(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintStyles(&buf, styles.List())

	out := buf.String()
	for _, s := range styles.List() {
		if !strings.Contains(out, s.ID) || !strings.Contains(out, s.Description) {
			t.Errorf("output missing %s:\n%s", s.ID, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("output should not contain escape codes when color is disabled")
	}
}

func TestPromptForInstruction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Grey suit, office window\n", "Grey suit, office window"},
		{"  padded  \n", "padded"},
		{"no newline", "no newline"},
		{"", ""},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := PromptForInstruction(strings.NewReader(tt.in), &out); got != tt.want {
			t.Errorf("PromptForInstruction(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !strings.Contains(out.String(), "Describe your style") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestResolveOutputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveOutputDir(dir)
	if err != nil || got != dir {
		t.Errorf("ResolveOutputDir(dir) = %q, %v", got, err)
	}
	if _, err := ResolveOutputDir(file); err == nil {
		t.Error("expected error for a file path")
	}
	if _, err := ResolveOutputDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for a missing directory")
	}

	t.Chdir(dir)
	got, err = ResolveOutputDir("")
	if err != nil || !filepath.IsAbs(got) {
		t.Errorf("ResolveOutputDir(\"\") = %q, %v", got, err)
	}
}
