package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kinobot/internal/backup"
	"kinobot/internal/notifications"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Catalog snapshots",
	}
	backupCmd.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Write a catalog snapshot immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(false, func(s *catalogSession) error {
				svc := backup.NewService(s.cfg, s.store, notifications.NewService(s.cfg), s.logger)
				snap, err := svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", snap.Path, snap.Size)
				return nil
			})
		},
	})
	backupCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List retained snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snaps, err := backup.NewService(cfg, nil, nil, ctx.logger()).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintf(out, "No snapshots in %s\n", cfg.Backup.Dir)
				return nil
			}
			rows := make([][]string, 0, len(snaps))
			for _, snap := range snaps {
				rows = append(rows, []string{
					snap.Name,
					strconv.FormatInt(snap.Size, 10),
					snap.ModTime.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Snapshot", "Bytes", "Written"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	})
	return backupCmd
}
