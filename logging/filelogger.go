// Package logging handles the harness's on-disk artifacts: cleanup of stale
// collector logs between test runs and persistence of captured test output.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/intel/ittapi-harness/types"
)

const (
	// RunDirectoryPrefix is the standardized prefix for per-run directories.
	RunDirectoryPrefix = "testrun-"

	summaryFilename = "summary.log"
	failedDirName   = "failed"
)

// FileLogger persists each test's captured output under a per-run directory,
// with failing tests mirrored into a failed/ subdirectory for quick triage.
type FileLogger struct {
	baseDir   string
	runDir    string
	failedDir string
	runID     string
	mu        sync.Mutex
}

// NewFileLogger creates the run directory structure under baseDir.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(runDir, failedDirName)
	for _, dir := range []string{runDir, failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		baseDir:   baseDir,
		runDir:    runDir,
		failedDir: failedDir,
		runID:     runID,
	}, nil
}

// GetRunID returns the run ID this logger was created for.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetRunDir returns the directory holding this run's artifacts.
func (l *FileLogger) GetRunDir() string {
	return l.runDir
}

// LogTestResult writes the test's captured output to <run dir>/<name>.log.
// ANSI escape sequences are stripped so the files stay grep-friendly. Failing
// tests get a second copy under failed/.
func (l *FileLogger) LogTestResult(result *types.TestResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	content := fmt.Sprintf("test: %s\nstatus: %s\nexit_code: %d\nduration: %s\n\n%s",
		result.Name, result.Status, result.ExitCode, result.Duration,
		stripansi.Strip(result.Output))

	path := filepath.Join(l.runDir, result.Name+".log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write test log %s: %w", path, err)
	}

	if result.Status == types.TestStatusFail {
		failedPath := filepath.Join(l.failedDir, result.Name+".log")
		if err := os.WriteFile(failedPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write failed-test log %s: %w", failedPath, err)
		}
	}
	return nil
}

// LogSummary writes the final run summary next to the per-test logs.
func (l *FileLogger) LogSummary(summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.runDir, summaryFilename)
	if err := os.WriteFile(path, []byte(stripansi.Strip(summary)), 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}
