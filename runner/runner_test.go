package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/ittapi-harness/logging"
	"github.com/intel/ittapi-harness/platform"
	"github.com/intel/ittapi-harness/registry"
	"github.com/intel/ittapi-harness/types"
)

// fakeExecutor records executions and returns canned exit codes per test name.
type fakeExecutor struct {
	exitCodes map[string]int
	executed  []string
	logDir    string
	sawLogs   bool // set when a stale collector log survived until execution
}

func (f *fakeExecutor) Execute(_ context.Context, tc types.TestCase) *types.TestResult {
	f.executed = append(f.executed, tc.Name)

	if f.logDir != "" {
		stale, _ := filepath.Glob(filepath.Join(f.logDir, logging.CollectorLogGlob))
		if len(stale) > 0 {
			f.sawLogs = true
		}
		// Simulate the collector leaving a log behind for the next test.
		_ = os.WriteFile(filepath.Join(f.logDir, "libittnotify_refcol_999.log"), []byte("x"), 0o644)
	}

	code := f.exitCodes[tc.Name]
	status := types.TestStatusPass
	if code != 0 {
		status = types.TestStatusFail
	}
	return &types.TestResult{
		Name:     tc.Name,
		Path:     tc.Path,
		Status:   status,
		ExitCode: code,
		Duration: time.Millisecond,
	}
}

// buildFixture lays out a build directory with a collector library and the
// given test executables under bin/.
func buildFixture(t *testing.T, testNames ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("execute-bit fixtures require a POSIX filesystem")
	}
	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(buildDir, "lib", "libittnotify_refcol.so"), []byte("lib"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "bin"), 0o755))
	for _, name := range testNames {
		require.NoError(t, os.WriteFile(
			filepath.Join(buildDir, "bin", name), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	}
	return buildDir
}

func newFixtureRunner(t *testing.T, buildDir string, fake *fakeExecutor, mutate func(*Config)) TestRunner {
	t.Helper()
	cfg := Config{
		BuildDir: buildDir,
		LogDir:   t.TempDir(),
		Profile:  testProfile(),
		NewExecutor: func(ec ExecutorConfig) (TestExecutor, error) {
			return fake, nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := NewTestRunner(cfg)
	require.NoError(t, err)
	return r
}

func TestNewTestRunnerValidation(t *testing.T) {
	_, err := NewTestRunner(Config{})
	assert.ErrorContains(t, err, "build directory is required")

	_, err = NewTestRunner(Config{BuildDir: "/b", FilterPattern: "[invalid"})
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestRunAllTestsMissingBuildDir(t *testing.T) {
	fake := &fakeExecutor{}
	r := newFixtureRunner(t, filepath.Join(t.TempDir(), "absent"), fake, nil)

	_, err := r.RunAllTests(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build directory not found")
	assert.Empty(t, fake.executed, "no tests may run after a setup failure")
}

func TestRunAllTestsMissingCollector(t *testing.T) {
	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "bin"), 0o755))

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, nil)

	_, err := r.RunAllTests(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector library not found")
	assert.Empty(t, fake.executed)
}

func TestRunAllTestsExplicitCollectorOverride(t *testing.T) {
	buildDir := buildFixture(t, "test_a")
	override := filepath.Join(t.TempDir(), "custom_refcol.so")
	require.NoError(t, os.WriteFile(override, []byte("lib"), 0o644))

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.CollectorPath = override
	})

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, override, result.CollectorPath)

	// A bogus override is a setup failure even when probing would succeed.
	r = newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.CollectorPath = filepath.Join(t.TempDir(), "nope.so")
	})
	_, err = r.RunAllTests(context.Background())
	assert.Error(t, err)
}

func TestRunAllTestsEmptyDiscovery(t *testing.T) {
	buildDir := buildFixture(t) // collector but no tests

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, nil)

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.Zero(t, result.Stats.Total)
	assert.Zero(t, result.Stats.Passed)
	assert.Zero(t, result.Stats.Failed)
	assert.Empty(t, result.Results)
	assert.Empty(t, fake.executed)
}

func TestRunAllTestsAggregation(t *testing.T) {
	buildDir := buildFixture(t, "test_a", "test_b", "test_c")

	fake := &fakeExecutor{exitCodes: map[string]int{"test_b": 1}}
	r := newFixtureRunner(t, buildDir, fake, nil)

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, result.Stats.Total, result.Stats.Passed+result.Stats.Failed)
	assert.Len(t, result.Results, result.Stats.Total)
	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.NotEmpty(t, result.RunID)

	// Execution order equals sorted discovery order.
	assert.Equal(t, []string{"test_a", "test_b", "test_c"}, fake.executed)

	failed := result.FailedTests()
	require.Len(t, failed, 1)
	assert.Equal(t, "test_b", failed[0].Name)
}

func TestRunAllTestsFilter(t *testing.T) {
	buildDir := buildFixture(t, "test_domain_basic", "test_region")

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.FilterPattern = "domain"
	})

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test_domain_basic"}, fake.executed)
	assert.Equal(t, 1, result.Stats.Total)
}

func TestRunAllTestsCleansLogsBeforeEachTest(t *testing.T) {
	buildDir := buildFixture(t, "test_a", "test_b", "test_c")
	logDir := t.TempDir()

	// A stale log from a previous session.
	require.NoError(t, os.WriteFile(
		filepath.Join(logDir, "libittnotify_refcol_111.log"), []byte("stale"), 0o644))

	fake := &fakeExecutor{logDir: logDir}
	r := newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.LogDir = logDir
	})

	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Len(t, fake.executed, 3)
	assert.False(t, fake.sawLogs, "collector logs must be cleaned before every test")
}

func TestRunAllTestsManifestWarnings(t *testing.T) {
	buildDir := buildFixture(t, "test_domain")

	manifestPath := filepath.Join(t.TempDir(), "suites.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
suites:
  - name: core
    tests:
      - test_domain
      - test_counter
`), 0o644))
	reg, err := registry.NewRegistry(registry.Config{ManifestFile: manifestPath})
	require.NoError(t, err)

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.Registry = reg
	})

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test_counter"}, result.MissingExpected)
	// Missing expected tests never affect the counts.
	assert.Equal(t, 1, result.Stats.Total)
	assert.Equal(t, types.TestStatusPass, result.Status)
}

func TestRunAllTestsWritesRunArtifacts(t *testing.T) {
	buildDir := buildFixture(t, "test_a")
	logDir := t.TempDir()

	fake := &fakeExecutor{}
	r := newFixtureRunner(t, buildDir, fake, func(cfg *Config) {
		cfg.LogDir = logDir
	})

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(logDir, logging.RunDirectoryPrefix+result.RunID)
	assert.FileExists(t, filepath.Join(runDir, "test_a.log"))
	assert.FileExists(t, filepath.Join(runDir, "summary.log"))
}

func TestRunAllTestsEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	buildDir := buildFixture(t)
	binDir := filepath.Join(buildDir, "bin")
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "test_pass"),
		[]byte("#!/bin/sh\necho ok\nexit 0\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "test_fail"),
		[]byte("#!/bin/sh\necho broken >&2\nexit 2\n"), 0o755))

	r, err := NewTestRunner(Config{
		BuildDir: buildDir,
		LogDir:   t.TempDir(),
		Profile:  testProfile(),
	})
	require.NoError(t, err)

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)

	require.Len(t, result.Results, 2)
	failed := result.Results[0]
	assert.Equal(t, "test_fail", failed.Name)
	assert.Equal(t, 2, failed.ExitCode)
	assert.Contains(t, failed.Output, "broken")
	assert.Equal(t, "test_pass", result.Results[1].Name)
}

func TestRunnerResultString(t *testing.T) {
	result := &RunnerResult{Status: types.TestStatusFail, Duration: 2300 * time.Millisecond}
	result.AddResult(&types.TestResult{Name: "test_a", Status: types.TestStatusPass})
	result.AddResult(&types.TestResult{Name: "test_b", Status: types.TestStatusFail, ExitCode: 1})

	s := result.String()
	assert.Contains(t, s, "Total: 2, Passed: 1, Failed: 1")
	assert.Contains(t, s, "test_a")
	assert.Contains(t, s, "Exit code: 1")
}

func TestProfileDefaultsToHost(t *testing.T) {
	r, err := NewTestRunner(Config{BuildDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, platform.Resolve().OS, r.(*runner).profile.OS)
}
