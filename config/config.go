// Package config provides configuration management for the TV Bridge
// backend. It handles loading, saving, and validating application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/vpn"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// ListenAddr is the loopback address the local REST API binds to.
	ListenAddr string `yaml:"listen_addr"`
	// ShowNotifications enables desktop notifications for connection events.
	ShowNotifications bool `yaml:"show_notifications"`
	// HistoryEnabled records connection events to the local history database.
	HistoryEnabled bool `yaml:"history_enabled"`
	// VerifyTimeoutSeconds bounds the post-launch verification poll.
	VerifyTimeoutSeconds int `yaml:"verify_timeout_seconds"`
	// Clients overrides the candidate install paths per VPN kind.
	// Keys are "wireguard" and "openvpn"; values are ordered path lists.
	Clients map[string][]string `yaml:"clients,omitempty"`
}

// DefaultConfig returns the default configuration.
// These are sensible defaults for most users.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:           common.DefaultListenAddr,
		ShowNotifications:    true,
		HistoryEnabled:       true,
		VerifyTimeoutSeconds: int(common.VerifyTimeout.Seconds()),
	}
}

// Load loads the configuration from the config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.SaveTo(configPath); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, common.WrapError(err, "error opening configuration")
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, common.WrapError(err, "error parsing configuration")
	}

	if err := config.validate(); err != nil {
		return nil, common.WrapError(err, "invalid configuration")
	}

	return &config, nil
}

// validate verifies configuration values and falls back to defaults for
// out-of-range entries.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = common.DefaultListenAddr
	}
	if c.VerifyTimeoutSeconds <= 0 {
		c.VerifyTimeoutSeconds = int(common.VerifyTimeout.Seconds())
	}
	for name := range c.Clients {
		if _, err := vpn.ParseKind(name); err != nil {
			return fmt.Errorf("unknown client kind %q", name)
		}
	}
	return nil
}

// ApplyClientPaths pushes the configured candidate paths into a locator.
// Kinds absent from the settings keep the built-in defaults.
func (c *Config) ApplyClientPaths(locator *vpn.Locator) {
	for name, paths := range c.Clients {
		kind, err := vpn.ParseKind(name)
		if err != nil {
			continue
		}
		locator.SetCandidates(kind, paths)
	}
}

// Save saves the configuration to the default config file.
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to an explicit path.
func (c *Config) SaveTo(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return common.WrapError(err, "error creating config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return common.WrapError(err, "error serializing configuration")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return common.WrapError(err, "error saving configuration")
	}

	return nil
}

func getConfigPath() (string, error) {
	configDir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, common.ConfigFileName), nil
}
