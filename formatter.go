package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/intel/ittapi-harness/runner"
	"github.com/intel/ittapi-harness/types"
)

// failurePreviewLines bounds how much captured output is echoed for each
// failing test, so a chatty test cannot flood the console.
const failurePreviewLines = 10

// ResultFormatter is responsible for formatting and displaying test results.
type ResultFormatter interface {
	FormatResults(result *runner.RunnerResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
// Color usage is fixed at construction time; there is no process-wide flag.
type ConsoleResultFormatter struct {
	out     io.Writer
	logger  log.Logger
	colored bool
	verbose bool
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(out io.Writer, logger log.Logger, colored, verbose bool) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		out:     out,
		logger:  logger,
		colored: colored,
		verbose: verbose,
	}
}

// FormatResults formats and displays the test results.
func (f *ConsoleResultFormatter) FormatResults(result *runner.RunnerResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("ITT API Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Test", "Duration", "Exit Code", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit Code", Align: text.AlignRight},
	})

	for _, res := range result.Results {
		t.AppendRow(table.Row{
			res.Name,
			formatDuration(res.Duration),
			res.ExitCode,
			getResultString(res.Status),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		formatDuration(result.Duration),
		fmt.Sprintf("%d/%d", result.Stats.Passed, result.Stats.Total),
		getResultString(result.Status),
	})

	if f.colored {
		if result.Status == types.TestStatusPass {
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		} else {
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	} else {
		t.SetStyle(table.StyleLight)
	}

	t.Render()

	for _, name := range result.MissingExpected {
		fmt.Fprintf(f.out, "WARN: expected test not discovered: %s\n", name)
	}

	if !f.verbose {
		f.printFailurePreviews(result)
	}
	return nil
}

// printFailurePreviews echoes the first lines of each failing test's captured
// output as a diagnosis starting point.
func (f *ConsoleResultFormatter) printFailurePreviews(result *runner.RunnerResult) {
	for _, res := range result.FailedTests() {
		fmt.Fprintf(f.out, "\n%s (exit code: %d)\n", res.Name, res.ExitCode)

		output := strings.TrimSpace(stripansi.Strip(res.Output))
		if output == "" {
			continue
		}
		lines := strings.Split(output, "\n")
		shown := lines
		if len(shown) > failurePreviewLines {
			shown = shown[:failurePreviewLines]
		}
		for _, line := range shown {
			fmt.Fprintf(f.out, "    %s\n", line)
		}
		if hidden := len(lines) - len(shown); hidden > 0 {
			fmt.Fprintf(f.out, "    ... (%d more lines)\n", hidden)
		}
	}
}
