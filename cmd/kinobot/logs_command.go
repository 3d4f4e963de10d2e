package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"kinobot/internal/logging"
	"kinobot/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		match  logs.Match
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines <= 0 {
				return fmt.Errorf("--lines must be positive")
			}
			path := filepath.Join(cfg.Logging.Dir, logging.LogFileName)
			filter := match.Filter()
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			for _, record := range result.Records {
				fmt.Fprintln(out, record)
			}
			if !follow {
				if len(result.Records) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No matching records in %s\n", path)
				}
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, result.Offset, filter, func(record string) {
				fmt.Fprintln(out, record)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().StringVar(&match.UserID, "user", "", "Only records for this Telegram user id")
	cmd.Flags().StringVar(&match.Code, "code", "", "Only records for this catalog code")
	cmd.Flags().StringVar(&match.EventType, "event", "", "Only records with this event_type")
	cmd.Flags().StringVar(&match.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
