package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "error")
	logger.Warn("quiet")
	logger.Error("loud", "status", 500)

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("warn should be filtered at error level: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "status=500") {
		t.Fatalf("expected error line with fields, got %q", out)
	}
}

func TestUnknownLevelFallsBackToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "chatty")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}
