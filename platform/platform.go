// Package platform resolves the OS-specific constants the harness needs to
// inject the reference collector: file extensions, injection environment
// variable names and the default log directory.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// InjectionEnvVar is the environment variable the ITT runtime reads to
	// load a collector library. The name is the same on every OS.
	InjectionEnvVar = "INTEL_LIBITTNOTIFY64"

	// LogDirEnvVar tells the reference collector where to write its logs.
	LogDirEnvVar = "INTEL_LIBITTNOTIFY_LOG_DIR"
)

// Profile holds the platform constants used during discovery and environment
// construction. Computed once via Resolve and read-only thereafter.
type Profile struct {
	OS            string
	LibExtension  string
	ExeExtension  string
	EnvVar        string
	DefaultLogDir string
	PathSeparator string
}

// Resolve returns the profile for the host operating system. Unknown systems
// get a POSIX-like profile so discovery degrades to an empty result instead
// of failing outright.
func Resolve() Profile {
	return resolve(runtime.GOOS)
}

func resolve(goos string) Profile {
	switch goos {
	case "windows":
		tempDir := os.Getenv("TEMP")
		if tempDir == "" {
			tempDir = `C:\Temp`
		}
		return Profile{
			OS:            "windows",
			LibExtension:  ".dll",
			ExeExtension:  ".exe",
			EnvVar:        InjectionEnvVar,
			DefaultLogDir: filepath.Join(tempDir, "itt_test_logs"),
			PathSeparator: ";",
		}
	case "darwin":
		return Profile{
			OS:            "darwin",
			LibExtension:  ".dylib",
			EnvVar:        InjectionEnvVar,
			DefaultLogDir: "/tmp/itt_test_logs",
			PathSeparator: ":",
		}
	default:
		return Profile{
			OS:            goos,
			LibExtension:  ".so",
			EnvVar:        InjectionEnvVar,
			DefaultLogDir: "/tmp/itt_test_logs",
			PathSeparator: ":",
		}
	}
}
