package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEFECTCTL_API_URL", "")
	t.Setenv("DEFECTCTL_DATA_DIR", "")
	t.Setenv("DEFECTCTL_LOG_LEVEL", "")
	t.Setenv("DEFECTCTL_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("expected no timeout, got %s", cfg.Timeout)
	}
	if filepath.Base(cfg.DataDir) != ".defectctl" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEFECTCTL_API_URL", "https://defects.example.com/")
	t.Setenv("DEFECTCTL_DATA_DIR", dir)
	t.Setenv("DEFECTCTL_TIMEOUT_SECONDS", "15")

	cfg := Load()
	if cfg.APIURL != "https://defects.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.APIURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.Timeout)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "defectctl.db") {
		t.Fatalf("unexpected db path %q", cfg.DatabasePath())
	}
	if cfg.KeyPath() != filepath.Join(dir, "secret.key") {
		t.Fatalf("unexpected key path %q", cfg.KeyPath())
	}
}

func TestBadTimeoutFallsBack(t *testing.T) {
	t.Setenv("DEFECTCTL_TIMEOUT_SECONDS", "soon")
	if got := Load().Timeout; got != 0 {
		t.Fatalf("expected fallback to no timeout, got %s", got)
	}
}
