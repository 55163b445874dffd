// Package config loads process configuration from the environment and sets
// up logging.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// Config holds process-level settings. Subsystem-specific knobs (decision
// client, prompt thresholds) load from their own packages.
type Config struct {
	// TechnicianID identifies whose workday this device tracks.
	TechnicianID string

	// DBPath is the local SQLite file. ":memory:" is accepted for tests.
	DBPath string

	// RemoteDSN is the Postgres connection string for the remote store.
	RemoteDSN string

	// ListenAddr is where the ingestion endpoint binds.
	ListenAddr string

	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults rooted under ~/.fieldtrack.
func Load() (Config, error) {
	_ = gotenv.Load()

	cfg := Config{
		TechnicianID: os.Getenv("FIELDTRACK_TECHNICIAN_ID"),
		DBPath:       os.Getenv("FIELDTRACK_DB"),
		RemoteDSN:    os.Getenv("FIELDTRACK_REMOTE_DSN"),
		ListenAddr:   os.Getenv("FIELDTRACK_LISTEN"),
		LogFile:      os.Getenv("FIELDTRACK_LOG_FILE"),
		LogLevel:     parseLevel(os.Getenv("FIELDTRACK_LOG_LEVEL")),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DBPath == "" || cfg.LogFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		dir := filepath.Join(home, ".fieldtrack")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Config{}, fmt.Errorf("creating %s: %w", dir, err)
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(dir, "fieldtrack.db")
		}
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(dir, "fieldtrack.log")
		}
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
