package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "WARN" {
		t.Errorf("got %q", LevelWarn.String())
	}
	if Level(99).String() != "UNKNOWN" {
		t.Errorf("got %q", Level(99).String())
	}
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()

	l, err := New(Config{
		Level:   LevelDebug,
		Service: "detector",
		Quiet:   true,
		LogDir:  dir,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Slog().Info("hello", "key", "value")
	l.Slog().Debug("debug message")

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	name := filepath.Join(dir, "detector_"+time.Now().Format("2006-01-02")+".log")
	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("opening log file: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		if entry["service"] != "detector" {
			t.Errorf("line %d service = %v", lines, entry["service"])
		}
	}
	if lines != 2 {
		t.Errorf("log lines = %d, want 2", lines)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	l, err := New(Config{Level: LevelWarn, Service: "x", Quiet: true, LogDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	l.Slog().Info("should be dropped")
	l.Slog().Warn("should be kept")
	l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "x_"+time.Now().Format("2006-01-02")+".log"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "should be dropped") {
		t.Error("info line leaked past warn filter")
	}
	if !strings.Contains(content, "should be kept") {
		t.Error("warn line missing")
	}
}

func TestQuietWithoutFileDiscards(t *testing.T) {
	l, err := New(Config{Quiet: true})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	// Must not panic with no destinations.
	l.Slog().Info("into the void")
}

func TestDoubleCloseIsSafe(t *testing.T) {
	l, err := New(Config{Quiet: true, LogDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
