package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"

	"github.com/intel/ittapi-harness/types"
)

const (
	// DefaultTestTimeout is the fixed wall-clock bound for one test process.
	DefaultTestTimeout = 300 * time.Second

	// VerboseFlag is the only flag ever passed to a test executable.
	VerboseFlag = "--verbose"
)

var _ TestExecutor = (*processExecutor)(nil)

// TestExecutor runs a single test executable and classifies the outcome.
// Execution never returns an error: timeouts and launch failures are folded
// into a failed TestResult so one broken test cannot abort the session.
type TestExecutor interface {
	Execute(ctx context.Context, tc types.TestCase) *types.TestResult
}

// ExecutorConfig holds configuration for creating a process executor.
type ExecutorConfig struct {
	Env     []string      // Child environment; required
	Timeout time.Duration // Zero means DefaultTestTimeout
	Verbose bool          // Stream child output instead of capturing it
	Stdout  io.Writer     // Verbose-mode stdout; defaults to os.Stdout
	Stderr  io.Writer     // Verbose-mode stderr; defaults to os.Stderr
	Log     log.Logger
}

// processExecutor implements TestExecutor
type processExecutor struct {
	env     []string
	timeout time.Duration
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	log     log.Logger
}

// NewProcessExecutor creates a new executor for test subprocesses.
func NewProcessExecutor(cfg ExecutorConfig) (TestExecutor, error) {
	if cfg.Env == nil {
		return nil, fmt.Errorf("env cannot be nil")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTestTimeout
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}

	return &processExecutor{
		env:     cfg.Env,
		timeout: cfg.Timeout,
		verbose: cfg.Verbose,
		stdout:  cfg.Stdout,
		stderr:  cfg.Stderr,
		log:     cfg.Log,
	}, nil
}

// Execute runs the test executable with the configured environment. The path
// is invoked directly, never through a shell.
func (e *processExecutor) Execute(ctx context.Context, tc types.TestCase) *types.TestResult {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var args []string
	if e.verbose {
		args = append(args, VerboseFlag)
	}
	cmd := exec.CommandContext(runCtx, tc.Path, args...)
	cmd.Env = telemetry.InstrumentEnvironment(runCtx, e.env)

	var captured bytes.Buffer
	if e.verbose {
		cmd.Stdout = e.stdout
		cmd.Stderr = e.stderr
	} else {
		// One combined buffer keeps stdout and stderr interleaved the way
		// the test emitted them.
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	}

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &types.TestResult{
		Name:     tc.Name,
		Path:     tc.Path,
		Status:   types.TestStatusPass,
		Duration: duration,
	}
	if !e.verbose {
		result.Output = captured.String()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Status = types.TestStatusFail
		result.ExitCode = types.SentinelExitCode
		result.TimedOut = true
		result.Output = fmt.Sprintf("Test timed out after %.0f seconds", e.timeout.Seconds())
		e.log.Warn("Test timed out", "test", tc.Name, "timeout", e.timeout)
		return result
	}

	if runErr != nil {
		result.Status = types.TestStatusFail
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Launch failure: missing binary, permission denied, spawn error.
			result.ExitCode = types.SentinelExitCode
			result.Output = runErr.Error()
			e.log.Error("Failed to launch test", "test", tc.Name, "err", runErr)
		}
		return result
	}

	return result
}
