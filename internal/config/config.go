// Package config provides configuration loading for the debugger.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the debugger's file configuration.
type Config struct {
	Log struct {
		// Level sets the stderr logging level (debug, info, warn,
		// error, off).
		Level string `yaml:"level"`
		// Pretty enables human-readable console output.
		Pretty bool `yaml:"pretty"`
		// File redirects diagnostics from stderr to the given path.
		File string `yaml:"file"`
	} `yaml:"log"`
	Debugger struct {
		// JustMyCode sets the initial just-my-code step filter.
		JustMyCode *bool `yaml:"just_my_code"`
	} `yaml:"debugger"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	cfg.Log.Level = "warn"
	jmc := true
	cfg.Debugger.JustMyCode = &jmc
	return cfg
}

// DefaultPath returns the path of the config file. The base directory
// is resolved in this order:
//  1. NETCOREDBG_CONFIG environment variable.
//  2. User home directory (~/.netcoredbg).
func DefaultPath() string {
	if baseDir := os.Getenv("NETCOREDBG_CONFIG"); baseDir != "" {
		return filepath.Join(baseDir, "config.yaml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".netcoredbg", "config.yaml")
}

// Load reads the config file at path, overlaying it on the defaults.
// A missing or empty path yields the defaults; a malformed file is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Debugger.JustMyCode == nil {
		jmc := true
		cfg.Debugger.JustMyCode = &jmc
	}
	return cfg, nil
}
