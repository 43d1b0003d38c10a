// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for rds-pgbadger with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables (including values loaded from .env files)
//  3. Instance-specific configuration
//  4. Global configuration file
//  5. Built-in defaults
//
// Configuration files may be YAML or TOML; the format is chosen from the
// file extension.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sirseerhq/rds-pgbadger/internal/publish"
	"github.com/sirseerhq/rds-pgbadger/internal/report"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "RDS_PGBADGER_"

// DefaultPaths returns the locations searched when no config file is given,
// in order.
func DefaultPaths() []string {
	home := homeDir()
	return []string{
		".rds-pgbadger.yaml",
		".rds-pgbadger.yml",
		".rds-pgbadger.toml",
		filepath.Join(home, ".rds-pgbadger", "config.yaml"),
		filepath.Join(home, ".rds-pgbadger", "config.yml"),
		filepath.Join(home, ".rds-pgbadger", "config.toml"),
	}
}

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise the first file found in DefaultPaths is used.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	return load(configPath, "")
}

// LoadConfigForInstance loads configuration and applies the overrides
// configured for the given DB instance identifier. Instance overrides sit
// above the file's global values and below the environment.
func LoadConfigForInstance(configPath, instance string) (*Config, error) {
	return load(configPath, instance)
}

func load(configPath, instance string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range DefaultPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if instance != "" {
		cfg.ApplyInstance(instance)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Download.OutputDir = expandPath(cfg.Download.OutputDir)
	cfg.Metrics.File = expandPath(cfg.Metrics.File)

	return cfg, nil
}

// ApplyInstance folds instance-specific overrides into the global settings.
func (c *Config) ApplyInstance(instance string) {
	ic, ok := c.Instances[instance]
	if !ok {
		return
	}
	if ic.Region != "" {
		c.AWS.Region = ic.Region
	}
	if ic.Profile != "" {
		c.AWS.Profile = ic.Profile
	}
	if ic.AssumeRole != "" {
		c.AWS.AssumeRole = ic.AssumeRole
	}
	if ic.InitialLines > 0 {
		c.Download.InitialLines = ic.InitialLines
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables that are already set win. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// loadConfigFile reads and parses a YAML or TOML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"REGION":          &cfg.AWS.Region,
		"PROFILE":         &cfg.AWS.Profile,
		"ASSUME_ROLE":     &cfg.AWS.AssumeRole,
		"ENDPOINT":        &cfg.AWS.Endpoint,
		"OUTPUT_DIR":      &cfg.Download.OutputDir,
		"FILENAME_FILTER": &cfg.Download.FilenameFilter,
		"PGBADGER":        &cfg.Report.Binary,
		"FORMAT":          &cfg.Report.Format,
		"PGBADGER_ARGS":   &cfg.Report.Args,
		"PREFIX":          &cfg.Report.Prefix,
		"UPLOAD":          &cfg.Publish.S3URL,
		"METRICS_FILE":    &cfg.Metrics.File,
	}
	for name, dst := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_ATTEMPTS":  &cfg.AWS.MaxAttempts,
		"INITIAL_LINES": &cfg.Download.InitialLines,
	}
	for name, dst := range ints {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir(), path[2:])
	}
	return os.ExpandEnv(path)
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE") // Windows
	}
	return home
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// Validate checks if the configuration contains valid values. It should be
// called after all sources, flags included, have been applied.
func (c *Config) Validate() error {
	if err := report.ValidateFormat(c.Report.Format); err != nil {
		return err
	}
	if c.Download.InitialLines <= 0 {
		return fmt.Errorf("initial lines must be positive, got: %d", c.Download.InitialLines)
	}
	if c.AWS.MaxAttempts < 0 {
		return fmt.Errorf("max attempts cannot be negative, got: %d", c.AWS.MaxAttempts)
	}
	if strings.TrimSpace(c.Download.OutputDir) == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Publish.S3URL != "" && !strings.HasPrefix(c.Publish.S3URL, "s3://") {
		return fmt.Errorf("upload destination must be an s3:// URL, got %s: %w", c.Publish.S3URL, publish.ErrInvalidURL)
	}
	return nil
}
