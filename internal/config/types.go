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

// Package config types define the configuration structures used throughout
// rds-pgbadger. These types can be loaded from YAML or TOML configuration
// files, environment variables, or command-line flags.
package config

import (
	"github.com/sirseerhq/rds-pgbadger/internal/fetch"
	"github.com/sirseerhq/rds-pgbadger/internal/portion"
	"github.com/sirseerhq/rds-pgbadger/internal/report"
)

// Config represents the complete configuration for rds-pgbadger.
type Config struct {
	AWS       AWSConfig                 `yaml:"aws" toml:"aws"`
	Download  DownloadConfig            `yaml:"download" toml:"download"`
	Report    ReportConfig              `yaml:"report" toml:"report"`
	Publish   PublishConfig             `yaml:"publish" toml:"publish"`
	Metrics   MetricsConfig             `yaml:"metrics" toml:"metrics"`
	Instances map[string]InstanceConfig `yaml:"instances" toml:"instances"`
}

// AWSConfig controls how the AWS session is resolved. Empty values defer
// to the SDK's default chain.
type AWSConfig struct {
	Region      string `yaml:"region" toml:"region"`
	Profile     string `yaml:"profile" toml:"profile"`
	AssumeRole  string `yaml:"assume_role" toml:"assume_role"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint"`
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts"`
}

// DownloadConfig controls where and how log files are fetched.
type DownloadConfig struct {
	OutputDir      string `yaml:"output_dir" toml:"output_dir"`
	FilenameFilter string `yaml:"filename_filter" toml:"filename_filter"`
	InitialLines   int    `yaml:"initial_lines" toml:"initial_lines"`
}

// ReportConfig controls the pgbadger invocation.
type ReportConfig struct {
	Binary string `yaml:"binary" toml:"binary"`
	Format string `yaml:"format" toml:"format"`
	Args   string `yaml:"args" toml:"args"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// PublishConfig names an optional S3 destination for the report.
type PublishConfig struct {
	S3URL string `yaml:"s3_url" toml:"s3_url"`
}

// MetricsConfig names an optional Prometheus textfile to write after a run.
type MetricsConfig struct {
	File string `yaml:"file" toml:"file"`
}

// InstanceConfig contains per-instance overrides, useful when instances
// live in different regions or accounts, or log unusually long lines.
type InstanceConfig struct {
	Region       string `yaml:"region" toml:"region"`
	Profile      string `yaml:"profile" toml:"profile"`
	AssumeRole   string `yaml:"assume_role" toml:"assume_role"`
	InitialLines int    `yaml:"initial_lines" toml:"initial_lines"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			MaxAttempts: 3,
		},
		Download: DownloadConfig{
			OutputDir:      "out",
			FilenameFilter: fetch.DefaultFilenameFilter,
			InitialLines:   portion.DefaultInitialLines,
		},
		Report: ReportConfig{
			Binary: report.DefaultBinary,
			Format: report.DefaultFormat,
			Prefix: report.DefaultPrefix,
		},
		Instances: make(map[string]InstanceConfig),
	}
}
