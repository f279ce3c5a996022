// Package exitcodes defines the standard exit codes used by itt-harness.
package exitcodes

// Exit code constants used by itt-harness
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when setup succeeded and all tests pass
// * TestFailure (1): Used when one or more tests fail
// * SetupErr (2): Used for setup failures such as a missing build directory
// or an unlocatable collector library, and for panics
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	SetupErr    = 2 // Setup failures, runtime errors or panics
)
