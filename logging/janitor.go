package logging

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
)

// CollectorLogGlob matches the files the reference collector writes. The
// janitor only ever touches files matching this pattern; anything else in the
// log directory is left alone.
const CollectorLogGlob = "libittnotify_refcol_*.log"

// CleanStats reports what a cleanup pass actually did. Deletion is
// best-effort: a file held open by a previous child is skipped, not fatal.
type CleanStats struct {
	Removed int
	Skipped int
}

// CleanCollectorLogs deletes stale collector log files from logDir. The
// collector keys its log files by process lifetime, not by test, so the
// orchestrator calls this before every test run to keep log attribution
// unambiguous. A missing directory is a no-op.
func CleanCollectorLogs(logDir string) CleanStats {
	var stats CleanStats

	matches, err := filepath.Glob(filepath.Join(logDir, CollectorLogGlob))
	if err != nil {
		// Only possible with a malformed pattern; ours is a constant.
		log.Debug("Collector log glob failed", "dir", logDir, "err", err)
		return stats
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			log.Debug("Could not remove stale collector log", "file", match, "err", err)
			stats.Skipped++
			continue
		}
		stats.Removed++
	}
	return stats
}
