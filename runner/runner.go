// Package runner orchestrates a harness session: collector and test
// discovery, per-test environment injection and strictly sequential
// subprocess execution with result aggregation.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/intel/ittapi-harness/discovery"
	"github.com/intel/ittapi-harness/logging"
	"github.com/intel/ittapi-harness/metrics"
	"github.com/intel/ittapi-harness/platform"
	"github.com/intel/ittapi-harness/registry"
	"github.com/intel/ittapi-harness/types"
)

// ResultStats tracks test statistics for a run
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
}

// RunnerResult captures the complete test run results. Results preserve
// insertion order, which equals the sorted discovery order.
type RunnerResult struct {
	RunID           string
	Results         []*types.TestResult
	Stats           ResultStats
	Status          types.TestStatus
	Duration        time.Duration
	CollectorPath   string
	TestDir         string
	LogDir          string
	MissingExpected []string // Manifest entries with no discovered executable
}

// AddResult appends one outcome and updates the counters, keeping
// Total == Passed + Failed == len(Results) at every step.
func (r *RunnerResult) AddResult(result *types.TestResult) {
	r.Results = append(r.Results, result)
	r.Stats.Total++
	if result.Passed() {
		r.Stats.Passed++
	} else {
		r.Stats.Failed++
		r.Status = types.TestStatusFail
	}
}

// FailedTests returns the failing outcomes in run order.
func (r *RunnerResult) FailedTests() []*types.TestResult {
	var failed []*types.TestResult
	for _, result := range r.Results {
		if !result.Passed() {
			failed = append(failed, result)
		}
	}
	return failed
}

func (r *RunnerResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed))

	for i, result := range r.Results {
		prefix := "├──"
		if i == len(r.Results)-1 {
			prefix = "└──"
		}
		b.WriteString(fmt.Sprintf("%s Test: %s (%s) [status=%s]\n",
			prefix, result.Name, formatDuration(result.Duration), result.Status))
		if !result.Passed() {
			b.WriteString(fmt.Sprintf("│       └── Exit code: %d\n", result.ExitCode))
		}
	}

	if len(r.MissingExpected) > 0 {
		b.WriteString(fmt.Sprintf("Expected but not discovered: %s\n",
			strings.Join(r.MissingExpected, ", ")))
	}
	return b.String()
}

// TestRunner defines the interface for running a harness session
type TestRunner interface {
	RunAllTests(ctx context.Context) (*RunnerResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	BuildDir      string
	CollectorPath string // Explicit collector override; probed when empty
	LogDir        string // Explicit log directory; profile default when empty
	FilterPattern string // Case-insensitive name filter
	Verbose       bool
	Timeout       time.Duration      // Zero means DefaultTestTimeout
	Profile       platform.Profile   // Zero value means the host profile
	Registry      *registry.Registry // Optional suite manifest
	Log           log.Logger
	Stdout        io.Writer // Verbose-mode streaming target
	Stderr        io.Writer

	// NewExecutor builds the per-session executor; overridable in tests.
	NewExecutor func(ExecutorConfig) (TestExecutor, error)
}

// runner struct implements TestRunner interface
type runner struct {
	cfg     Config
	profile platform.Profile
	filter  *regexp.Regexp
	log     log.Logger
	runID   string
	tracer  trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.BuildDir == "" {
		return nil, fmt.Errorf("build directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTestTimeout
	}
	if cfg.NewExecutor == nil {
		cfg.NewExecutor = NewProcessExecutor
	}

	profile := cfg.Profile
	if profile.OS == "" {
		profile = platform.Resolve()
	}

	filter, err := discovery.CompileFilter(cfg.FilterPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", cfg.FilterPattern, err)
	}

	cfg.Log.Debug("NewTestRunner()", "buildDir", cfg.BuildDir, "collector", cfg.CollectorPath,
		"logDir", cfg.LogDir, "filter", cfg.FilterPattern, "verbose", cfg.Verbose)

	return &runner{
		cfg:     cfg,
		profile: profile,
		filter:  filter,
		log:     cfg.Log,
		tracer:  otel.Tracer("test runner"),
	}, nil
}

// RunAllTests implements the TestRunner interface. Any returned error is a
// setup failure: once the test loop starts, individual failures are folded
// into the result and never abort the session.
func (r *runner) RunAllTests(ctx context.Context) (*RunnerResult, error) {
	r.runID = uuid.New().String()
	defer func() { r.runID = "" }()

	ctx, span := r.tracer.Start(ctx, "test run")
	defer span.End()

	start := time.Now()
	r.log.Debug("Running all tests", "run_id", r.runID)

	result := &RunnerResult{
		RunID:  r.runID,
		Status: types.TestStatusPass,
		Stats:  ResultStats{StartTime: start},
	}

	collectorPath, logDir, err := r.setupEnvironment()
	if err != nil {
		return nil, err
	}
	result.CollectorPath = collectorPath
	result.LogDir = logDir

	testDir, cases, err := r.discoverTests()
	if err != nil {
		return nil, err
	}
	result.TestDir = testDir

	if r.cfg.Registry != nil {
		missing := r.cfg.Registry.MissingFrom(cases, r.profile.ExeExtension)
		for _, name := range missing {
			r.log.Warn("Expected test not discovered", "test", name)
		}
		result.MissingExpected = missing
	}

	if len(cases) == 0 {
		r.log.Warn("No test executables found", "dir", testDir)
		r.finalize(result)
		return result, nil
	}
	r.log.Info("Discovered test executables", "count", len(cases), "dir", testDir)

	fileLogger, err := logging.NewFileLogger(logDir, r.runID)
	if err != nil {
		// Persistence is supplemental; the run proceeds without it.
		r.log.Warn("Could not create file logger", "err", err)
		fileLogger = nil
	}

	executor, err := r.cfg.NewExecutor(ExecutorConfig{
		Env:     BuildEnv(os.Environ(), r.profile, collectorPath, logDir),
		Timeout: r.cfg.Timeout,
		Verbose: r.cfg.Verbose,
		Stdout:  r.cfg.Stdout,
		Stderr:  r.cfg.Stderr,
		Log:     r.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	// Strictly sequential: the collector keys its log files by process
	// lifetime, so overlapping tests would cross-contaminate the log dir.
	for _, tc := range cases {
		cleaned := logging.CleanCollectorLogs(logDir)
		r.log.Debug("Cleaned collector logs before test",
			"test", tc.Name, "removed", cleaned.Removed, "skipped", cleaned.Skipped)

		testCtx, testSpan := r.tracer.Start(ctx, fmt.Sprintf("test %s", tc.Name))
		outcome := executor.Execute(testCtx, tc)
		testSpan.End()

		result.AddResult(outcome)
		metrics.RecordTest(r.runID, outcome.Name, outcome.Status)

		if outcome.Passed() {
			r.log.Info("Test passed", "test", tc.Name, "duration", outcome.Duration)
		} else {
			r.log.Error("Test failed", "test", tc.Name,
				"exit_code", outcome.ExitCode, "duration", outcome.Duration, "timed_out", outcome.TimedOut)
		}

		if fileLogger != nil {
			if err := fileLogger.LogTestResult(outcome); err != nil {
				r.log.Warn("Could not persist test output", "test", tc.Name, "err", err)
			}
		}
	}

	r.finalize(result)
	if fileLogger != nil {
		if err := fileLogger.LogSummary(result.String()); err != nil {
			r.log.Warn("Could not persist run summary", "err", err)
		}
	}
	return result, nil
}

// setupEnvironment validates the build directory, resolves the collector
// library and prepares the collector log directory.
func (r *runner) setupEnvironment() (collectorPath, logDir string, err error) {
	info, statErr := os.Stat(r.cfg.BuildDir)
	if statErr != nil || !info.IsDir() {
		return "", "", fmt.Errorf("build directory not found: %s", r.cfg.BuildDir)
	}

	collectorPath = r.cfg.CollectorPath
	if collectorPath == "" {
		found, ok := discovery.FindCollector(r.cfg.BuildDir, r.profile)
		if !ok {
			return "", "", fmt.Errorf("reference collector library not found under %s", r.cfg.BuildDir)
		}
		collectorPath = found
	} else if _, statErr := os.Stat(collectorPath); statErr != nil {
		return "", "", fmt.Errorf("reference collector library not found: %s", collectorPath)
	}
	r.log.Info("Reference collector", "path", collectorPath)

	logDir = r.cfg.LogDir
	if logDir == "" {
		logDir = r.profile.DefaultLogDir
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	r.log.Info("Log directory", "path", logDir)

	cleaned := logging.CleanCollectorLogs(logDir)
	r.log.Info("Cleaned up old log files", "removed", cleaned.Removed, "skipped", cleaned.Skipped)

	return collectorPath, logDir, nil
}

// discoverTests resolves the test directory and enumerates the executables.
func (r *runner) discoverTests() (string, []types.TestCase, error) {
	testDir, ok := discovery.ResolveTestDir(r.cfg.BuildDir)
	if !ok {
		return "", nil, fmt.Errorf("test directory not found under %s", r.cfg.BuildDir)
	}

	cases, err := discovery.FindTests(testDir, r.profile, r.filter)
	if err != nil {
		return "", nil, fmt.Errorf("failed to enumerate tests in %s: %w", testDir, err)
	}
	return testDir, cases, nil
}

func (r *runner) finalize(result *RunnerResult) {
	result.Duration = time.Since(result.Stats.StartTime)
	result.Stats.EndTime = time.Now()
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

var _ TestRunner = &runner{}
