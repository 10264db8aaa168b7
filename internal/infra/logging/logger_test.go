package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger configures a logger with a custom writer for tests
func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("conversion done", "bytes", 42, "cached", true)

	out := buf.String()
	if !strings.Contains(out, "conversion done") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(out, `"bytes":42`) || !strings.Contains(out, `"cached":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestWarnAndErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Info("hidden")
	Warn("upload cleanup failed", "path", "/tmp/x.html")
	Error("render failed", "error", errors.New("target closed"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"path":"/tmp/x.html"`) {
		t.Error("Warn log output missing expected content")
	}
	if !strings.Contains(out, `"error":"target closed"`) {
		t.Error("errors should be logged by their message")
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}
}

func TestDanglingKeyDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "debug")

	Debug("odd", "k", "v", "dangling")
	if !strings.Contains(buf.String(), `"!BADKEY":"dangling"`) {
		t.Errorf("expected dangling key marker, got %s", buf.String())
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "html2pdf.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	Info("to file", "k", "v")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}
