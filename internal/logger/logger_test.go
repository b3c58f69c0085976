package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cctvstation/internal/config"
)

func TestNewLogger_CreatesLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	l.Error("port %s gone", "COM3")

	for _, name := range []string{"info.log", "warning.log", "error.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("Failed to read error.log: %v", err)
	}
	if !strings.Contains(string(data), "port COM3 gone") {
		t.Errorf("error.log missing entry, got %q", data)
	}

	if err := l.CleanLogs("error.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "error.log"))
	if len(data) != 0 {
		t.Errorf("Expected error.log to be empty after clean, got %d bytes", len(data))
	}
}

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Info("a=%d", 1)
	l.Warning("b")
	l.Error("c")

	out := buf.String()
	for _, want := range []string{"INFO", "a=1", "WARNING", "ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}
