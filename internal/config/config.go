package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultLogLevel = "warn"
)

// Config holds everything the client needs before talking to the backend.
type Config struct {
	APIURL      string
	DataDir     string
	LogLevel    string
	Timeout     time.Duration
	ServiceName string
}

// Load resolves configuration from the environment. Flags applied later win.
func Load() Config {
	return Config{
		APIURL:      strings.TrimRight(getEnv("DEFECTCTL_API_URL", DefaultAPIURL), "/"),
		DataDir:     getEnv("DEFECTCTL_DATA_DIR", defaultDataDir()),
		LogLevel:    getEnv("DEFECTCTL_LOG_LEVEL", DefaultLogLevel),
		Timeout:     readDurationSeconds("DEFECTCTL_TIMEOUT_SECONDS", 0),
		ServiceName: getEnv("OTEL_SERVICE_NAME", "defectctl"),
	}
}

// DatabasePath returns the sqlite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "defectctl.db")
}

// KeyPath returns the file holding the key used to seal stored values.
func (c Config) KeyPath() string {
	return filepath.Join(c.DataDir, "secret.key")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".defectctl"
	}
	return filepath.Join(home, ".defectctl")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
