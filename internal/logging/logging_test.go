package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNew(t *testing.T) {
	t.Run("defaults to info", func(t *testing.T) {
		logger, closer, err := New(Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer closer.Close()
		if logger.GetLevel() != log.InfoLevel {
			t.Errorf("level = %v, want info", logger.GetLevel())
		}
	})

	t.Run("parses level case-insensitively", func(t *testing.T) {
		logger, closer, err := New(Options{Level: "DEBUG"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer closer.Close()
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("level = %v, want debug", logger.GetLevel())
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		if _, _, err := New(Options{Level: "loud"}); err == nil {
			t.Error("expected error for unknown level")
		}
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emuterm.log")
		logger, closer, err := New(Options{File: path, Prefix: "test"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("spawned", "pid", 42)
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		got := string(data)
		for _, want := range []string{"test", "spawned", "pid=42"} {
			if !strings.Contains(got, want) {
				t.Errorf("log output %q missing %q", got, want)
			}
		}
	})
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	// Must not panic or write anywhere
	logger.Error("dropped")
	if logger.GetLevel() != log.FatalLevel {
		t.Errorf("level = %v, want fatal", logger.GetLevel())
	}
}
