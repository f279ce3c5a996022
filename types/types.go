package types

import (
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// SentinelExitCode is recorded when a test is killed on timeout or fails to
// launch at all. Real process exit statuses are never negative, so the
// sentinel cannot collide with them.
const SentinelExitCode = -1

// TestCase is a discovered test executable. Identity is the absolute path;
// Name is the file name used for display and sorting.
type TestCase struct {
	Name string
	Path string
}

// TestResult captures the outcome of a single test execution
type TestResult struct {
	Name     string
	Path     string
	Status   TestStatus
	ExitCode int
	Duration time.Duration
	Output   string // Combined stdout+stderr; empty in verbose mode
	TimedOut bool
}

// Passed reports whether the test exited cleanly.
func (r *TestResult) Passed() bool {
	return r.Status == TestStatusPass
}

// DisplayName returns the test name without the platform executable suffix,
// so results read the same on Windows and POSIX systems.
func DisplayName(name, exeExtension string) string {
	if exeExtension == "" {
		return name
	}
	return strings.TrimSuffix(name, exeExtension)
}
