package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultBaseURL      = "http://localhost:8000"
	DefaultTimeout      = 2 * time.Minute
)

type AppConfig struct {
	BaseURL      string
	Timeout      time.Duration
	Home         string
	HistoryDB    string
	ExportDir    string
	LogPath      string
	GlamourStyle string
	Verbose      bool
	ResetHistory bool
}

// Resolve fills every unset field from the environment or the defaults and
// creates the directories the app writes into.
func Resolve(cfg AppConfig) (AppConfig, error) {
	var err error

	cfg.BaseURL = DetectBaseURL(cfg.BaseURL)
	if cfg.Timeout < 0 {
		return cfg, fmt.Errorf("timeout must not be negative")
	}
	if cfg.GlamourStyle == "" {
		cfg.GlamourStyle = DefaultGlamourStyle
	}

	cfg.Home, err = DetectHome(cfg.Home)
	if err != nil {
		return cfg, err
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(cfg.Home, "history.sqlite")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(cfg.Home, "ragdesk.log")
	}
	if cfg.ExportDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("resolve cwd: %w", err)
		}
		cfg.ExportDir = filepath.Join(cwd, "ragdesk-exports")
	}

	for _, dir := range []string{filepath.Dir(cfg.HistoryDB), filepath.Dir(cfg.LogPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cfg, fmt.Errorf("create data dir: %w", err)
		}
	}
	return cfg, nil
}

func DetectBaseURL(explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if fromEnv := strings.TrimSpace(os.Getenv("RAGDESK_URL")); fromEnv != "" {
		return strings.TrimRight(fromEnv, "/")
	}
	return DefaultBaseURL
}

func DetectHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("RAGDESK_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ragdesk"), nil
}
