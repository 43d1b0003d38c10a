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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
	"github.com/sirseerhq/rds-pgbadger/internal/metadata"
	"github.com/sirseerhq/rds-pgbadger/internal/portion"
	"github.com/sirseerhq/rds-pgbadger/internal/publish"
	"github.com/sirseerhq/rds-pgbadger/internal/rds"
)

type runnerMock struct {
	mock.Mock
}

func (r *runnerMock) Run(ctx context.Context, command string) (int, error) {
	args := r.Called(ctx, command)
	return args.Int(0), args.Error(1)
}

type putObjectRecorder struct {
	keys []string
}

func (p *putObjectRecorder) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.keys = append(p.keys, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

type harness struct {
	deps      deps
	connector *rds.MockConnector
	client    *rds.MockClient
	runner    *runnerMock
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	out       string
}

// newHarness isolates the run from the developer's config files and PATH
// and wires mock collaborators.
func newHarness(t *testing.T) *harness {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	t.Setenv("PATH", t.TempDir())

	h := &harness{
		client: rds.NewMockClient(),
		runner: &runnerMock{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		out:    filepath.Join(t.TempDir(), "out"),
	}
	h.connector = &rds.MockConnector{Client: h.client}
	h.deps = deps{
		connector: func(*slog.Logger) rds.Connector { return h.connector },
		runner:    h.runner,
		newUploader: func(aws.Config, *slog.Logger) *publish.Uploader {
			t.Fatal("unexpected upload")
			return nil
		},
		stdout: h.stdout,
		stderr: h.stderr,
	}
	return h
}

func (h *harness) execute(args ...string) error {
	cmd := newRootCommand(h.deps)
	cmd.SetArgs(append(args, "-o", h.out))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

// installPgBadger puts an executable named pgbadger on PATH.
func installPgBadger(t *testing.T) {
	t.Helper()
	dir := os.Getenv("PATH")
	bin := filepath.Join(dir, "pgbadger")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755))
}

func TestRun_NoProcess(t *testing.T) {
	h := newHarness(t)

	err := h.execute("mydb", "-n", "-d", "2024-01-01", "-r", "us-east-1")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(h.out, "error", "postgresql.log.2024-01-01-00"))
	assert.FileExists(t, filepath.Join(h.out, "error", "postgresql.log.2024-01-01-01"))
	assert.NoFileExists(t, filepath.Join(h.out, "error", "postgresql.log.2024-01-02-00"))

	assert.Equal(t, "us-east-1", h.connector.LastOpts.Region)
	assert.Equal(t, "mydb", h.client.LastInstance)
	h.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRun_GeneratesReport(t *testing.T) {
	h := newHarness(t)
	installPgBadger(t)

	bin := filepath.Join(os.Getenv("PATH"), "pgbadger")
	want := fmt.Sprintf(`%s -p "%%t:%%r:%%u@%%d:[%%p]:" --jobs 2 -o %s/report.html %s/error/*.log.*`, bin, h.out, h.out)
	h.runner.On("Run", mock.Anything, want).Return(0, nil).Once()

	err := h.execute("mydb", "--pgbadger-args", "--jobs 2")
	require.NoError(t, err)

	h.runner.AssertExpectations(t)
	// All three listed files were downloaded before the report ran.
	assert.Len(t, h.client.PortionCalls, 3)
}

func TestRun_ReportFailureStatusIsNotFatal(t *testing.T) {
	h := newHarness(t)
	installPgBadger(t)
	h.runner.On("Run", mock.Anything, mock.Anything).Return(1, nil)

	require.NoError(t, h.execute("mydb"))
	assert.Contains(t, h.stderr.String(), "non-zero status")
}

func TestRun_PgBadgerMissingFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t)

	err := h.execute("mydb", "-d", "2024-01-01")
	require.ErrorIs(t, err, apperrors.ErrPgBadgerNotFound)
	assert.Equal(t, 2, mapErrorToExitCode(err))
	assert.Zero(t, h.connector.Calls)
	assert.NoDirExists(t, h.out)
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"bad date", []string{"mydb", "-n", "-d", "2024-13-01"}, errInvalidDate},
		{"not a date", []string{"mydb", "-n", "-d", "yesterday"}, errInvalidDate},
		{"bad format", []string{"mydb", "-n", "-f", "pdf"}, apperrors.ErrInvalidFormat},
		{"bad upload", []string{"mydb", "--upload", "s3://"}, publish.ErrInvalidURL},
		{"non-s3 upload", []string{"mydb", "--upload", "http://bucket"}, publish.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			installPgBadger(t)

			err := h.execute(tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 2, mapErrorToExitCode(err))
			assert.Zero(t, h.connector.Calls)
		})
	}
}

func TestRun_SessionErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"no region", fmt.Errorf("No region provided: %w", apperrors.ErrNoRegion), 2},
		{"partial credentials", apperrors.ErrPartialCredentials, 2},
		{"network", fmt.Errorf("dial tcp: %w", apperrors.ErrNetworkFailure), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.connector.Error = tt.err

			err := h.execute("mydb", "-n")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, mapErrorToExitCode(err))
			assert.Empty(t, h.client.PortionCalls)
		})
	}
}

func TestRun_NoProgressExitCode(t *testing.T) {
	h := newHarness(t)
	h.client.Portions["error/postgresql.log.2024-01-01-00"] = []portion.Portion{
		{Data: " " + portion.TruncationNotice, Marker: "0", Pending: true},
	}

	err := h.execute("mydb", "-n")
	require.ErrorIs(t, err, apperrors.ErrNoProgress)
	assert.Equal(t, 4, mapErrorToExitCode(err))
}

func TestRun_Summary(t *testing.T) {
	h := newHarness(t)
	h.client.Portions["error/postgresql.log.2024-01-01-00"] = []portion.Portion{
		{Data: "line one\nline two\n", Marker: "2", Pending: true},
		{Data: "line three\n", Marker: "3", Pending: false},
	}

	require.NoError(t, h.execute("mydb", "-n", "-d", "2024-01-01", "--summary"))

	var summary metadata.RunSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))

	assert.Equal(t, "mydb", summary.Parameters.Instance)
	assert.Equal(t, "2024-01-01", summary.Parameters.Date)
	assert.True(t, summary.Parameters.NoProcess)
	assert.Equal(t, 10000, summary.Parameters.InitialLines)
	assert.Equal(t, 2, summary.Results.FilesDownloaded)
	assert.Equal(t, int64(len("line one\nline two\nline three\n")), summary.Results.BytesWritten)
	// One listing, three portions for the first file (the last one empty),
	// one for the second.
	assert.Equal(t, 5, summary.Results.APICallCount)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_MetricsFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "rds_pgbadger.prom")

	require.NoError(t, h.execute("mydb", "-n", "-d", "2024-01-01", "--metrics-file", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `rds_pgbadger_files_downloaded_total{instance_id="mydb"} 2`)
	assert.Contains(t, text, `rds_pgbadger_last_run_success{instance_id="mydb"} 1`)
}

func TestRun_MetricsFileRecordsFailure(t *testing.T) {
	h := newHarness(t)
	h.client.ShouldFailAuth = true
	path := filepath.Join(t.TempDir(), "rds_pgbadger.prom")

	err := h.execute("mydb", "-n", "--metrics-file", path)
	require.ErrorIs(t, err, apperrors.ErrAccessDenied)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rds_pgbadger_last_run_success{instance_id="mydb"} 0`)
}

func TestRun_Upload(t *testing.T) {
	h := newHarness(t)
	installPgBadger(t)

	store := &putObjectRecorder{}
	h.deps.newUploader = func(_ aws.Config, logger *slog.Logger) *publish.Uploader {
		return publish.NewUploader(store, logger)
	}
	h.runner.On("Run", mock.Anything, mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		_ = os.WriteFile(filepath.Join(h.out, "report.html"), []byte("<html></html>"), 0o644)
	})

	require.NoError(t, h.execute("mydb", "--upload", "s3://reports/daily", "--summary"))

	assert.Equal(t, []string{"reports/daily/report.html"}, store.keys)

	var summary metadata.RunSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))
	assert.Equal(t, "s3://reports/daily/report.html", summary.Results.ReportURL)
	assert.Equal(t, filepath.Join(h.out, "report.html"), summary.Results.Report)
}

func TestRun_ConfigFileAndFlagPrecedence(t *testing.T) {
	h := newHarness(t)
	installPgBadger(t)

	config := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(config, []byte(`
[aws]
region = "eu-west-1"
profile = "reporting"

[report]
format = "json"

[instances.mydb]
initial_lines = 400
`), 0o644))

	h.runner.On("Run", mock.Anything, mock.MatchedBy(func(cmd string) bool {
		return strings.Contains(cmd, "-o "+h.out+"/report.json")
	})).Return(0, nil).Once()

	require.NoError(t, h.execute("mydb", "--config", config, "--region", "us-west-2"))

	assert.Equal(t, "us-west-2", h.connector.LastOpts.Region)
	assert.Equal(t, "reporting", h.connector.LastOpts.Profile)
	require.NotEmpty(t, h.client.PortionCalls)
	assert.Equal(t, 400, h.client.PortionCalls[0].Lines)
	h.runner.AssertExpectations(t)
}

func TestRun_EmptyBinaryUsesLocatedPath(t *testing.T) {
	h := newHarness(t)
	installPgBadger(t)

	config := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("report:\n  binary: \"\"\n"), 0o644))

	bin := filepath.Join(os.Getenv("PATH"), "pgbadger")
	h.runner.On("Run", mock.Anything, mock.MatchedBy(func(cmd string) bool {
		return strings.HasPrefix(cmd, bin+" -p ")
	})).Return(0, nil).Once()

	require.NoError(t, h.execute("mydb", "--config", config))
	h.runner.AssertExpectations(t)
}

func TestRun_EnvironmentOverride(t *testing.T) {
	h := newHarness(t)
	t.Setenv("RDS_PGBADGER_REGION", "ap-south-1")
	t.Setenv("RDS_PGBADGER_INITIAL_LINES", "50")

	require.NoError(t, h.execute("mydb", "-n"))

	assert.Equal(t, "ap-south-1", h.connector.LastOpts.Region)
	assert.Equal(t, 50, h.client.PortionCalls[0].Lines)
}

func TestRun_DotEnv(t *testing.T) {
	h := newHarness(t)
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("RDS_PGBADGER_PROFILE=from-dotenv\n"), 0o644))
	h.deps.dotenv = []string{env}
	t.Setenv("RDS_PGBADGER_PROFILE", "")
	os.Unsetenv("RDS_PGBADGER_PROFILE")

	require.NoError(t, h.execute("mydb", "-n"))
	assert.Equal(t, "from-dotenv", h.connector.LastOpts.Profile)
}

func TestRun_VerboseLogging(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.execute("mydb", "-n", "-v"))
	assert.Contains(t, h.stderr.String(), "level=DEBUG")

	h.stderr.Reset()
	h.client.Reset()
	require.NoError(t, h.execute("mydb", "-n"))
	assert.NotContains(t, h.stderr.String(), "level=DEBUG")
	assert.Contains(t, h.stderr.String(), "download complete")
}

func TestRun_RequiresInstance(t *testing.T) {
	h := newHarness(t)
	cmd := newRootCommand(h.deps)
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, mapErrorToExitCode(err))
	assert.Zero(t, h.connector.Calls)
}

func TestValidateDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"", false},
		{"2024-01-01", false},
		{"2024-02-29", false},
		{"2023-02-29", true},
		{"2024-1-1", true},
		{"01/01/2024", true},
	}

	for _, tt := range tests {
		err := validateDate(tt.date)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
		}
	}
}

func TestMapErrorToExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"general", errors.New("boom"), 1},
		{"no region", apperrors.ErrNoRegion, 2},
		{"no credentials", apperrors.ErrNoCredentials, 2},
		{"partial credentials", apperrors.ErrPartialCredentials, 2},
		{"access denied", apperrors.ErrAccessDenied, 2},
		{"instance not found", fmt.Errorf("wrapped: %w", apperrors.ErrInstanceNotFound), 2},
		{"pgbadger missing", apperrors.ErrPgBadgerNotFound, 2},
		{"invalid format", apperrors.ErrInvalidFormat, 2},
		{"invalid date", errInvalidDate, 2},
		{"network", fmt.Errorf("failed to download x: %w", apperrors.ErrNetworkFailure), 3},
		{"no progress", fmt.Errorf("failed to download x: %w", apperrors.ErrNoProgress), 4},
		{"cancelled", context.Canceled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErrorToExitCode(tt.err); got != tt.want {
				t.Errorf("mapErrorToExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
