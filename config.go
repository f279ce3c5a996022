package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/intel/ittapi-harness/flags"
)

// Config holds the application configuration
type Config struct {
	BuildDir      string        // Build directory holding the collector and the test executables
	RefcolLib     string        // Explicit collector library path; auto-detected when empty
	LogDir        string        // Collector log directory; platform default when empty
	FilterPattern string        // Case-insensitive filter applied to test names
	ManifestPath  string        // Optional suite manifest listing expected tests
	Verbose       bool          // Stream test output in real time
	Colored       bool          // Render the results table with colors
	RunInterval   time.Duration // Interval between test runs
	RunOnce       bool          // Indicates if the service should exit after one test run
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, buildDir string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if buildDir == "" {
		return nil, errors.New("build directory is required")
	}

	absBuildDir, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for build directory '%s': %w", buildDir, err)
	}

	refcolLib := ctx.String(flags.RefcolLib.Name)
	if refcolLib != "" {
		refcolLib, err = filepath.Abs(refcolLib)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for collector library '%s': %w", refcolLib, err)
		}
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	manifestPath := ctx.String(flags.Manifest.Name)
	if manifestPath != "" {
		manifestPath, err = filepath.Abs(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifestPath, err)
		}
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		BuildDir:      absBuildDir,
		RefcolLib:     refcolLib,
		LogDir:        logDir,
		FilterPattern: ctx.String(flags.Filter.Name),
		ManifestPath:  manifestPath,
		Verbose:       ctx.Bool(flags.Verbose.Name),
		Colored:       true,
		RunInterval:   runInterval,
		RunOnce:       runOnce,
		Log:           log,
	}, nil
}
