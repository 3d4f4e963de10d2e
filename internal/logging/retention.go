package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPattern matches the per-run daemon log files kept beside LogFileName.
const RunLogPattern = "kinobot-*.log"

const runLogStamp = "20060102T150405.000Z"

// RunLogPath returns the per-run log file for a daemon started at started.
func RunLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, "kinobot-"+started.UTC().Format(runLogStamp)+".log")
}

// PruneRunLogs removes per-run log files in dir last written more than
// retentionDays before now and returns how many were removed. The run that
// LogFileName points at is never removed. A retentionDays of 0 disables
// pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil {
		return 0
	}
	current, _ := os.Stat(filepath.Join(dir, LogFileName))
	cutoff := now.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if current != nil && os.SameFile(current, info) {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of logging.dir; kinobot must be able to delete its own run logs"),
				String(FieldImpact, "old run log stays on disk until removed by hand"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
