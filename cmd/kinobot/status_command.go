package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"kinobot/internal/backup"
	"kinobot/internal/logging"
	"kinobot/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runChecks bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, catalog, and backup status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			line := func(label string, kind statusKind, message string) {
				fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
			}

			line("Config", statusInfo, ctx.configPath)
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			switch {
			case err != nil:
				line("Daemon", statusError, err.Error())
			case locked:
				_ = lock.Unlock()
				line("Daemon", statusWarn, "not running")
			default:
				msg := "running"
				if pid := readPID(filepath.Join(cfg.Logging.Dir, "kinobot.pid")); pid != "" {
					msg += " (pid " + pid + ")"
				}
				line("Daemon", statusOK, msg)
			}

			if err := cfg.ValidateDaemon(); err != nil {
				line("Bot config", statusError, err.Error())
			} else {
				line("Bot config", statusOK, "@"+cfg.Telegram.BotUsername)
			}
			if cfg.Access.Enabled {
				line("Access gate", statusOK, fmt.Sprintf("%d channel(s)", len(cfg.Access.Channels)))
			} else {
				line("Access gate", statusWarn, "disabled")
			}

			err = ctx.withCatalog(false, func(s *catalogSession) error {
				codes, err := s.store.Codes(cmd.Context())
				if err != nil {
					return err
				}
				line("Catalog", statusOK, fmt.Sprintf("%d entries (%s)", len(codes), cfg.Storage.Driver))
				return nil
			})
			if err != nil {
				line("Catalog", statusError, err.Error())
			}

			if cfg.Backup.Enabled {
				svc := backup.NewService(cfg, nil, nil, logging.NewNop())
				snaps, err := svc.List()
				switch {
				case err != nil:
					line("Backups", statusError, err.Error())
				case len(snaps) == 0:
					line("Backups", statusWarn, "none yet ("+cfg.Backup.Schedule+")")
				default:
					line("Backups", statusOK, fmt.Sprintf("%d kept, latest %s", len(snaps), snaps[0].Name))
				}
			} else {
				line("Backups", statusWarn, "disabled")
			}
			line("Notifications", statusInfo, "ntfy "+yesNo(cfg.Notifications.NtfyTopic != ""))

			if !runChecks {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Preflight:")
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				line(result.Name, kind, result.Detail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runChecks, "check", false, "Also run directory and network preflight checks")
	return cmd
}

func readPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
