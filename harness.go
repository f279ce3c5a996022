package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/intel/ittapi-harness/exitcodes"
	"github.com/intel/ittapi-harness/registry"
	"github.com/intel/ittapi-harness/runner"
	"github.com/intel/ittapi-harness/types"
)

// svc implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &svc{}

// svc is the harness service: it validates ITT API test executables against
// the reference collector.
type svc struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	runner    runner.TestRunner
	formatter ResultFormatter
	reporter  MetricsReporter
	result    *runner.RunnerResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*svc, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating harness with config",
		"buildDir", config.BuildDir,
		"refcolLib", config.RefcolLib,
		"logDir", config.LogDir,
		"filter", config.FilterPattern,
		"manifest", config.ManifestPath,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"verbose", config.Verbose)

	var reg *registry.Registry
	if config.ManifestPath != "" {
		var err error
		reg, err = registry.NewRegistry(registry.Config{
			Log:          config.Log,
			ManifestFile: config.ManifestPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create registry: %w", err)
		}
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		BuildDir:      config.BuildDir,
		CollectorPath: config.RefcolLib,
		LogDir:        config.LogDir,
		FilterPattern: config.FilterPattern,
		Verbose:       config.Verbose,
		Registry:      reg,
		Log:           config.Log,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	config.Log.Info("harness.New: created test runner")

	return &svc{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		formatter:        NewConsoleResultFormatter(os.Stdout, config.Log, config.Colored, config.Verbose),
		reporter:         NewDefaultMetricsReporter(),
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the test session, either once or periodically at the configured
// interval. Start implements the cliapp.Lifecycle interface.
func (s *svc) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.SetupErr)
		}
	}()

	s.ctx = ctx
	s.done = make(chan struct{})
	s.running.Store(true)

	if s.config.RunOnce {
		s.config.Log.Info("Starting itt-harness in run-once mode")
	} else {
		s.config.Log.Info("Starting itt-harness in continuous mode", "interval", s.config.RunInterval)
	}

	// Run tests immediately on startup
	err := s.runTests()
	if err != nil {
		s.config.Log.Error("Setup error running tests", "error", err)
		return cli.Exit(err.Error(), exitcodes.SetupErr)
	}

	// If in run-once mode, trigger shutdown and return
	if s.config.RunOnce {
		s.config.Log.Info("Tests completed, exiting (run-once mode)")

		// Check if any tests failed and return appropriate exit code
		if s.result != nil && s.result.Status == types.TestStatusFail {
			s.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
			return NewTestFailureError(s.result.String())
		}

		// Only need to call this when we're in run-once mode and all tests passed
		go func() {
			s.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	// Start a goroutine for periodic test execution
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Log.Debug("Starting periodic test runner goroutine", "interval", s.config.RunInterval)

		for {
			select {
			case <-time.After(s.config.RunInterval):
				// Check if we should still be running
				if !s.running.Load() {
					s.config.Log.Debug("Service stopped, exiting periodic test runner")
					return
				}

				s.config.Log.Info("Running periodic tests")
				if err := s.runTests(); err != nil {
					s.config.Log.Error("Error running periodic tests", "error", err)
				}

			case <-s.done:
				s.config.Log.Debug("Done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				s.config.Log.Debug("Context canceled, stopping periodic test runner")
				s.running.Store(false)
				return
			}
		}
	}()
	s.config.Log.Debug("itt-harness started successfully")
	return nil
}

// runTests runs one full session and processes the results
func (s *svc) runTests() error {
	s.config.Log.Info("Running all tests...")
	result, err := s.runner.RunAllTests(s.ctx)
	if err != nil {
		// Setup failure, not a test failure
		s.config.Log.Error("Session setup failed", "error", err)
		return NewSetupError(err)
	}
	s.result = result

	if err := s.formatter.FormatResults(result); err != nil {
		s.config.Log.Error("Error formatting results", "error", err)
	}
	s.reporter.ReportResults(result.RunID, result)

	s.config.Log.Info("Test run completed", "run_id", result.RunID, "status", result.Status,
		"total", result.Stats.Total, "passed", result.Stats.Passed, "failed", result.Stats.Failed)
	return nil
}

// Stop stops the harness service.
// Stop implements the cliapp.Lifecycle interface.
func (s *svc) Stop(ctx context.Context) error {
	s.config.Log.Info("Stopping itt-harness")

	// Check if we're already stopped
	if !s.running.Load() {
		s.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new test runs
	s.running.Store(false)

	// Signal goroutines to exit
	s.config.Log.Debug("Sending done signal to goroutines")
	close(s.done)

	s.config.Log.Info("itt-harness stopped successfully")
	return nil
}

// Stopped returns true if the harness service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (s *svc) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (s *svc) WaitForShutdown(ctx context.Context) error {
	s.config.Log.Debug("Waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.config.Log.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		s.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
