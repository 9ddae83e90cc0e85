// Package operator holds configuration for the redeemctl operator
// console.
package operator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the redeemctl configuration file.
type Config struct {
	ServerURL      string `toml:"server_url"`
	Token          string `toml:"token"`
	VerifyTimeout  string `toml:"verify_timeout"`
	ScanCadence    string `toml:"scan_cadence"`
	ConfirmApprove bool   `toml:"confirm_approve"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:      "http://localhost:3000",
		VerifyTimeout:  "10s",
		ScanCadence:    "300ms",
		ConfirmApprove: true,
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "redeemctl.toml"
	}
	return filepath.Join(home, ".config", "redeemctl", "config.toml")
}

// Load reads the configuration file at path, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration file, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// VerifyTimeoutDuration parses the configured verify timeout.
func (c *Config) VerifyTimeoutDuration() time.Duration {
	return parseDuration(c.VerifyTimeout, 10*time.Second)
}

// ScanCadenceDuration parses the configured detector cadence.
func (c *Config) ScanCadenceDuration() time.Duration {
	return parseDuration(c.ScanCadence, 300*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
