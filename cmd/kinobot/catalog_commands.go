package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kinobot/internal/catalog"
	"kinobot/internal/fileutil"
	"kinobot/internal/services"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"cat"},
		Short:   "Inspect and maintain the catalog document",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogExportCommand(ctx))
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogDeleteCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.Kind(strings.ToLower(strings.TrimSpace(kind)))
			if filter != "" && filter != catalog.KindSingle && filter != catalog.KindSeries {
				return fmt.Errorf("--kind must be %q or %q", catalog.KindSingle, catalog.KindSeries)
			}
			return ctx.withCatalog(false, func(s *catalogSession) error {
				doc, err := s.store.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				var summaries []catalog.Summary
				for _, summary := range catalog.Summaries(doc) {
					if filter == "" || summary.Kind == filter {
						summaries = append(summaries, summary)
					}
				}
				if asJSON {
					if summaries == nil {
						summaries = []catalog.Summary{}
					}
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				fmt.Fprintln(out, renderSummaries(summaries))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().StringVar(&kind, "kind", "", "Only list entries of this kind (single or series)")
	return cmd
}

func renderSummaries(summaries []catalog.Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		episodes := "-"
		if s.Kind == catalog.KindSeries {
			episodes = strconv.Itoa(s.Episodes)
		}
		rows = append(rows, []string{
			s.Code,
			string(s.Kind),
			s.Title,
			episodes,
			yesNo(s.HasPoster),
			yesNo(s.Published),
		})
	}
	return renderTable(
		[]string{"Code", "Kind", "Title", "Episodes", "Poster", "Published"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <code>",
		Short: "Show one catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(false, func(s *catalogSession) error {
				entry, ok, err := s.store.Get(cmd.Context(), code)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("catalog entry %s not found", code)
				}
				detail := catalog.Describe(entry)
				if asJSON {
					return writeJSON(cmd, detail)
				}
				renderDetail(cmd.OutOrStdout(), detail)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func renderDetail(out io.Writer, d catalog.Detail) {
	fmt.Fprintf(out, "Code:       %s\n", d.Code)
	fmt.Fprintf(out, "Kind:       %s\n", d.Kind)
	fmt.Fprintf(out, "Title:      %s\n", d.Title)
	fmt.Fprintf(out, "Poster:     %s\n", yesNo(d.HasPoster))
	if d.Published {
		fmt.Fprintf(out, "Published:  yes (message %d)\n", d.AnnouncementID)
	} else {
		fmt.Fprintln(out, "Published:  no")
	}
	if d.Caption != "" {
		fmt.Fprintln(out, "Caption:")
		for _, line := range strings.Split(d.Caption, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	if len(d.EpisodeList) > 0 {
		rows := make([][]string, 0, len(d.EpisodeList))
		for _, ep := range d.EpisodeList {
			rows = append(rows, []string{strconv.Itoa(ep.Number), ep.Title})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Episode"}, rows, []columnAlignment{alignRight, alignLeft}))
	}
}

func newCatalogExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog document to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(false, func(s *catalogSession) error {
				data, err := s.store.Export(cmd.Context())
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := fileutil.WriteFileAtomic(output, data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported catalog to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default stdout)")
	return cmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a catalog document or legacy export into the catalog",
		Long: "Merge a catalog document into the catalog. Accepts the current document\n" +
			"format, the legacy single-video format, and JSON arrays of\n" +
			"{code, title, file_id} records. Use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, issues, err := catalog.ParseImport(data)
			if err != nil {
				return err
			}
			return ctx.withCatalog(true, func(s *catalogSession) error {
				report, err := s.store.Import(cmd.Context(), doc, overwrite)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				skipped := append(append([]catalog.DecodeIssue(nil), issues...), report.Skipped...)
				fmt.Fprintf(out, "Added %d, replaced %d, skipped %d\n", report.Added, report.Replaced, len(skipped))
				for _, issue := range skipped {
					fmt.Fprintf(out, "  skipped %s\n", issue)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace entries whose code already exists")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return data, nil
}

func newCatalogDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Remove a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(true, func(s *catalogSession) error {
				removed, err := s.store.Delete(cmd.Context(), code)
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("catalog entry %s not found", code)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted %s (%s)\n", removed.Code, removed.Title())
				if removed.Published() {
					fmt.Fprintf(out, "Announcement message %d is still in the channel; remove it there or delete through the bot.\n", removed.Announcement)
				}
				return nil
			})
		},
	}
}

func parseCode(arg string) (string, error) {
	code, ok := catalog.NormalizeCode(arg)
	if !ok {
		return "", fmt.Errorf("invalid catalog code %q", arg)
	}
	return code, nil
}
