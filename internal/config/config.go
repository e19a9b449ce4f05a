package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pentools.
type Config struct {
	Port      int
	APIKey    string
	LogLevel  string
	LogFormat string // "json" or "console"

	// Local data directory for the SQLite state file
	DataDir string

	// Shell bridge
	ShellPath      string // interpreter used for Exec, default /bin/sh
	ExecTimeoutSec int    // per-command timeout, 0 = none

	// Terminal
	MaxLines   int // retained scrollback lines
	MaxHistory int // retained history entries

	// File manager
	WritableRoot string // mutations are only allowed below this path

	// Toolshell scripts
	ToolshellDir string

	// Update checker
	GitHubOwner    string
	GitHubRepo     string
	GitHubAPIURL   string
	CurrentVersion string
	DeviceModel    string
	DownloadDir    string

	// Optional YAML file whose keys fill unset PENTOOLS_* variables.
	ConfigFile string
}

// Load reads configuration from environment variables with sensible defaults.
// If PENTOOLS_CONFIG_FILE is set, its keys are applied to the environment
// first (env vars take precedence).
func Load() (*Config, error) {
	if path := os.Getenv("PENTOOLS_CONFIG_FILE"); path != "" {
		if err := loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:      8080,
		APIKey:    os.Getenv("PENTOOLS_API_KEY"),
		LogLevel:  envOrDefault("PENTOOLS_LOG_LEVEL", "info"),
		LogFormat: envOrDefault("PENTOOLS_LOG_FORMAT", "json"),

		DataDir: envOrDefault("PENTOOLS_DATA_DIR", "/userdisk/pentools"),

		ShellPath:      envOrDefault("PENTOOLS_SHELL", "/bin/sh"),
		ExecTimeoutSec: envOrDefaultInt("PENTOOLS_EXEC_TIMEOUT_SEC", 60),

		MaxLines:   envOrDefaultInt("PENTOOLS_MAX_LINES", 500),
		MaxHistory: envOrDefaultInt("PENTOOLS_MAX_HISTORY", 100),

		WritableRoot: envOrDefault("PENTOOLS_WRITABLE_ROOT", "/userdisk"),
		ToolshellDir: envOrDefault("PENTOOLS_TOOLSHELL_DIR", "/userdisk/paper/toolshell"),

		GitHubOwner:    envOrDefault("PENTOOLS_GITHUB_OWNER", "penosext"),
		GitHubRepo:     envOrDefault("PENTOOLS_GITHUB_REPO", "miniapp"),
		GitHubAPIURL:   envOrDefault("PENTOOLS_GITHUB_API_URL", "https://api.github.com"),
		CurrentVersion: envOrDefault("PENTOOLS_VERSION", "1.0.0"),
		DeviceModel:    envOrDefault("PENTOOLS_DEVICE_MODEL", "a6p"),
		DownloadDir:    envOrDefault("PENTOOLS_DOWNLOAD_DIR", "/userdisk"),

		ConfigFile: os.Getenv("PENTOOLS_CONFIG_FILE"),
	}

	if portStr := os.Getenv("PENTOOLS_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PENTOOLS_PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PENTOOLS_PORT %d", cfg.Port)
	}

	if !strings.HasPrefix(cfg.WritableRoot, "/") {
		return nil, fmt.Errorf("PENTOOLS_WRITABLE_ROOT must be absolute, got %q", cfg.WritableRoot)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// loadFile reads a flat YAML mapping of PENTOOLS_* keys and sets any values
// as environment variables, only if not already set, so explicit env vars
// always win.
//
//	PENTOOLS_PORT: 8090
//	PENTOOLS_WRITABLE_ROOT: /userdisk
func loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var values map[string]interface{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	for key, value := range values {
		if !strings.HasPrefix(key, "PENTOOLS_") {
			return fmt.Errorf("unknown key %q (keys must start with PENTOOLS_)", key)
		}
		if os.Getenv(key) != "" || value == nil {
			continue
		}
		os.Setenv(key, fmt.Sprint(value))
	}
	return nil
}
