package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type runnerMock struct {
	mock.Mock
}

func (r *runnerMock) Run(ctx context.Context, command string) (int, error) {
	args := r.Called(ctx, command)
	return args.Int(0), args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShellRunner_Run(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := &ShellRunner{Stdout: &stdout, Stderr: &stderr}

	code, err := r.Run(context.Background(), "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

func TestShellRunner_NonZeroExit(t *testing.T) {
	r := &ShellRunner{Stdout: io.Discard, Stderr: io.Discard}

	code, err := r.Run(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestShellRunner_ExpandsGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "error"), 0o755))
	for _, name := range []string{"postgresql.log.2024-01-01-00", "postgresql.log.2024-01-01-01", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "error", name), nil, 0o644))
	}

	var stdout bytes.Buffer
	r := &ShellRunner{Stdout: &stdout, Stderr: io.Discard}

	code, err := r.Run(context.Background(), "ls "+quote(filepath.Join(dir, "error"))+"/*.log.* | wc -l")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "2")
}

func TestShellRunner_PrefixReachesProgramLiterally(t *testing.T) {
	prefix := `%t:$HOME:"x"` + "`id`" + `\`

	var stdout bytes.Buffer
	r := &ShellRunner{Stdout: &stdout, Stderr: io.Discard}

	code, err := r.Run(context.Background(), "printf '%s' "+doubleQuote(prefix))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, prefix, stdout.String())
}

func TestShellRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &ShellRunner{Stdout: io.Discard, Stderr: io.Discard}
	_, err := r.Run(ctx, "sleep 5")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvoker_Generate(t *testing.T) {
	cmd, err := NewCommand("pgbadger", "out", "html", "")
	require.NoError(t, err)

	runner := &runnerMock{}
	runner.On("Run", mock.Anything, `pgbadger -p "%t:%r:%u@%d:[%p]:" -o out/report.html out/error/*.log.*`).
		Return(0, nil).Once()

	path, err := NewInvoker(runner, quietLogger()).Generate(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "report.html"), path)
	runner.AssertExpectations(t)
}

func TestInvoker_NonZeroStatusIsOnlyLogged(t *testing.T) {
	cmd, err := NewCommand("pgbadger", "out", "text", "")
	require.NoError(t, err)

	runner := &runnerMock{}
	runner.On("Run", mock.Anything, mock.Anything).Return(2, nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	path, err := NewInvoker(runner, logger).Generate(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "report.text"), path)
	assert.Contains(t, logs.String(), "non-zero status")
	assert.Contains(t, logs.String(), "status=2")
}

func TestInvoker_LaunchFailure(t *testing.T) {
	cmd, err := NewCommand("pgbadger", "out", "html", "")
	require.NoError(t, err)

	runner := &runnerMock{}
	runner.On("Run", mock.Anything, mock.Anything).Return(-1, errors.New("fork failed"))

	_, err = NewInvoker(runner, quietLogger()).Generate(context.Background(), cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fork failed")
}
