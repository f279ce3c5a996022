package harness

import (
	"fmt"
	"time"

	"github.com/intel/ittapi-harness/types"
)

// getResultString returns a short string representing the test result
func getResultString(status types.TestStatus) string {
	if status == types.TestStatusPass {
		return "✓ pass"
	}
	return "✗ fail"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
