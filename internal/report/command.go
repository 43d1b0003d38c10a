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

// Package report builds and runs the pgbadger command over downloaded logs.
package report

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
)

const (
	// DefaultBinary is looked up on PATH when no binary is configured.
	DefaultBinary = "pgbadger"

	// DefaultPrefix is the log_line_prefix RDS uses for PostgreSQL.
	DefaultPrefix = "%t:%r:%u@%d:[%p]:"

	// DefaultFormat is the report format used when none is requested.
	DefaultFormat = "html"
)

// Formats lists the report formats pgbadger can produce.
var Formats = []string{"text", "html", "bin", "json", "tsung"}

// ValidateFormat checks that format is one of Formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s: %w", format, strings.Join(Formats, ", "), apperrors.ErrInvalidFormat)
}

// Locate finds the report binary on PATH.
func Locate(binary string) (string, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", binary, apperrors.ErrPgBadgerNotFound)
	}
	return path, nil
}

// Command describes one pgbadger invocation.
type Command struct {
	Binary    string
	Prefix    string
	Args      string
	OutputDir string
	Format    string
}

// NewCommand builds a Command with the default prefix.
func NewCommand(binary, outputDir, format, args string) (Command, error) {
	if err := ValidateFormat(format); err != nil {
		return Command{}, err
	}
	return Command{
		Binary:    binary,
		Prefix:    DefaultPrefix,
		Args:      strings.TrimSpace(args),
		OutputDir: outputDir,
		Format:    format,
	}, nil
}

// OutputPath is where the report is written.
func (c Command) OutputPath() string {
	return filepath.Join(c.OutputDir, "report."+c.Format)
}

// InputGlob matches the downloaded error logs.
func (c Command) InputGlob() string {
	return filepath.Join(c.OutputDir, "error", "*.log.*")
}

// String renders the shell command line. Args are passed through unquoted so
// the shell splits them; the input glob is left for the shell to expand.
func (c Command) String() string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	parts := []string{
		quote(c.Binary),
		"-p", doubleQuote(prefix),
	}
	if c.Args != "" {
		parts = append(parts, c.Args)
	}
	parts = append(parts,
		"-o", quote(c.OutputPath()),
		quote(filepath.Join(c.OutputDir, "error"))+string(filepath.Separator)+"*.log.*",
	)
	return strings.Join(parts, " ")
}

// doubleQuote wraps s in double quotes, escaping the characters sh still
// interprets there.
func doubleQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if strings.ContainsRune("\\\"$`", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// quote single-quotes s for sh when it contains anything beyond a safe set.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./:@%+=,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
