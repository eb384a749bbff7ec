package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest/internal/logging"
)

func TestNewConsoleWritesComponentPrefix(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	scoped := logging.NewComponentLogger(logger, "catalog")
	scoped.Info("listing fetched", logging.Int("dataset_count", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "catalog: listing fetched") {
		t.Fatalf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "dataset_count=3") {
		t.Fatalf("expected attribute in output, got %q", line)
	}
}

func TestNewJSONLowercasesLevel(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "json.log")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("slow response")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"level":"warn"`) {
		t.Fatalf("expected lowercase level in JSON output, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "filtered.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "warn",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should be kept")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "should be dropped") {
		t.Fatalf("info record should have been filtered, got %q", content)
	}
	if !strings.Contains(string(content), "should be kept") {
		t.Fatalf("warn record missing, got %q", content)
	}
}

func TestRecordsRouteToSingleDestination(t *testing.T) {
	tempDir := t.TempDir()
	outPath := filepath.Join(tempDir, "out.log")
	errPath := filepath.Join(tempDir, "err.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{outPath},
		ErrorOutputPaths: []string{errPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("progress line")
	logger.Error("failure line")

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read out log: %v", err)
	}
	errOut, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("read err log: %v", err)
	}

	if !strings.Contains(string(out), "progress line") || strings.Contains(string(out), "failure line") {
		t.Fatalf("output log should carry only non-error records, got %q", out)
	}
	if !strings.Contains(string(errOut), "failure line") || strings.Contains(string(errOut), "progress line") {
		t.Fatalf("error log should carry only error records, got %q", errOut)
	}
}

func TestRecordEmittedOnce(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "shared.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Error("single failure")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if got := strings.Count(string(content), "single failure"); got != 1 {
		t.Fatalf("record emitted %d times, want 1: %q", got, content)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("discarded", logging.Error(os.ErrNotExist))
}
