package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"splicer/ffmpeg"
)

// stderrTailLines is how many diagnostic lines are kept on failure.
const stderrTailLines = 8

// waitDelay bounds how long Run waits for output pipes after the process
// is killed.
const waitDelay = 5 * time.Second

// Runner executes an external binary and returns its stdout.
//
// Implementations must honour ctx cancellation. A non-zero exit is an error.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// ExitError reports a non-zero exit from an engine process.
type ExitError struct {
	Binary string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Binary, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs binaries with os/exec.
type ExecRunner struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewExecRunner creates a runner. A zero timeout lets processes run until
// they exit or the context is cancelled.
func NewExecRunner(logger *zap.Logger, timeout time.Duration) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger, timeout: timeout}
}

// Run executes binary with args and returns captured stdout.
func (r *ExecRunner) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Debug("exec", zap.String("command", FormatCommandLine(binary, args)))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s interrupted after %s: %w", binary, elapsed.Round(time.Millisecond), ctxErr)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("failed to start %s: %w", binary, err)
		}
		r.logger.Debug("exec failed",
			zap.String("binary", binary),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return stdout.Bytes(), &ExitError{Binary: binary, Err: err, Stderr: ffmpeg.Summarize(stderr.String(), stderrTailLines)}
	}

	r.logger.Debug("exec finished", zap.String("binary", binary), zap.Duration("elapsed", elapsed))
	return stdout.Bytes(), nil
}
