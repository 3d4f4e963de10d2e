package preflight

import (
	"context"

	"kinobot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Directories checks every directory the daemon writes to.
func Directories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Storage directory", cfg.Storage.Dir),
		CheckDirectoryAccess("Log directory", cfg.Logging.Dir),
	}
	if cfg.Backup.Enabled {
		results = append(results, CheckDirectoryAccess("Backup directory", cfg.Backup.Dir))
	}
	return results
}

// RunAll executes all applicable preflight checks for the given config.
// Network probes are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := Directories(cfg)
	results = append(results, CheckTelegram(ctx, TelegramAPIBase, cfg.Telegram.Token, cfg.Telegram.BotUsername))
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
