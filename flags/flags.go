package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "ITT_HARNESS"

var (
	BuildDir = &cli.StringFlag{
		Name:     "build-dir",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_DIR"),
		Usage:    "Path to the build directory holding the collector library and test executables",
	}
	RefcolLib = &cli.StringFlag{
		Name:    "refcol-lib",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REFCOL_LIB"),
		Usage:   "Path to the reference collector library (auto-detected if not specified)",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory for collector log files (default: platform-specific temp directory)",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
		Usage:   "Stream test output in real time instead of capturing it",
	}
	Filter = &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FILTER"),
		Usage:   "Run only tests matching pattern (case-insensitive regex)",
	}
	Manifest = &cli.StringFlag{
		Name:    "manifest",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MANIFEST"),
		Usage:   "Path to suite manifest file (eg. 'suites.yaml') listing expected tests",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
)

var requiredFlags = []cli.Flag{
	BuildDir,
}

var optionalFlags = []cli.Flag{
	RefcolLib,
	LogDir,
	Verbose,
	Filter,
	Manifest,
	RunInterval,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
