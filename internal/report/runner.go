package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Runner runs a shell command line and returns its exit status.
type Runner interface {
	Run(ctx context.Context, command string) (int, error)
}

// ShellRunner runs commands through sh -c so globs and passthrough
// arguments are expanded by the shell.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellRunner creates a runner that forwards output to this process.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes the command and waits for it. A non-zero exit status is
// returned as the int result, not as an error.
func (r *ShellRunner) Run(ctx context.Context, command string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, fmt.Errorf("execution failed: %w", err)
}

// Invoker generates the report once all logs are downloaded.
type Invoker struct {
	runner Runner
	logger *slog.Logger
}

// NewInvoker creates an Invoker. A nil logger uses slog.Default().
func NewInvoker(runner Runner, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{runner: runner, logger: logger}
}

// Generate runs cmd and returns the report path. The exit status of the
// report tool is logged but not interpreted.
func (i *Invoker) Generate(ctx context.Context, cmd Command) (string, error) {
	line := cmd.String()

	i.logger.Info("generating pgbadger report", "output", cmd.OutputPath())
	i.logger.Debug("report command", "command", line)

	start := time.Now()
	code, err := i.runner.Run(ctx, line)
	if err != nil {
		return "", fmt.Errorf("failed to run report command: %w", err)
	}

	if code != 0 {
		i.logger.Warn("report command exited with non-zero status",
			"status", code,
			"command", line)
	} else {
		i.logger.Debug("report command finished", "elapsed", time.Since(start).Round(time.Millisecond))
	}

	return cmd.OutputPath(), nil
}
