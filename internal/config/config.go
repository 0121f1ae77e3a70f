// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the session token goes to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hyperbase/cli/internal/xdg"
)

// Defaults for a fresh installation.
const (
	DefaultBaseURL           = "http://localhost:8080"
	DefaultBaseWSURL         = "ws://localhost:8080"
	DefaultLogLevel          = "info"
	DefaultOutput            = "table"
	DefaultImportConcurrency = 4
)

// Environment overrides, applied by Load on top of the file.
const (
	EnvBaseURL           = "HYPERBASE_BASE_URL"
	EnvBaseWSURL         = "HYPERBASE_BASE_WS_URL"
	EnvLogLevel          = "HYPERBASE_LOG_LEVEL"
	EnvOutput            = "HYPERBASE_OUTPUT"
	EnvImportConcurrency = "HYPERBASE_IMPORT_CONCURRENCY"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	BaseURL           string `json:"base_url"`
	BaseWSURL         string `json:"base_ws_url"`
	LogLevel          string `json:"log_level"`
	Output            string `json:"output"`
	ImportConcurrency int    `json:"import_concurrency"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		BaseWSURL:         DefaultBaseWSURL,
		LogLevel:          DefaultLogLevel,
		Output:            DefaultOutput,
		ImportConcurrency: DefaultImportConcurrency,
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file and applies environment overrides.
// A missing file yields defaults.
func Load() (Config, error) {
	c, err := LoadFile()
	if err != nil {
		return c, err
	}
	c.applyEnv(os.Getenv)
	return c, nil
}

// LoadFile reads the config file without environment overrides, for callers
// that write the result back with Save.
func LoadFile() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return loadFrom(p)
}

func loadFrom(p string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	c.fillDefaults()
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return saveTo(p, c)
}

func saveTo(p string, c Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.BaseWSURL == "" {
		c.BaseWSURL = d.BaseWSURL
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.ImportConcurrency <= 0 {
		c.ImportConcurrency = d.ImportConcurrency
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvBaseWSURL)); v != "" {
		c.BaseWSURL = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvOutput)); v != "" {
		c.Output = v
	}
	if v := strings.TrimSpace(getenv(EnvImportConcurrency)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ImportConcurrency = n
		}
	}
}
