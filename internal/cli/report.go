package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"pagefind/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	var (
		asJSON bool
		limit  int
		runID  int64
		remove int64
	)
	cmd := &cobra.Command{
		Use:   "report [database]",
		Short: "Show scans saved with scan --db",
		Long: `report lists the scans saved in a database, newest first, or prints the
matches of one scan with --run. The database defaults to [scan] database.`,
		Example: `  pagefind report scans.db
  pagefind report scans.db --run 3
  pagefind report scans.db --delete 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, nil)
			if err != nil {
				return err
			}
			path := cfg.Scan.Database
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no database given and [scan] database is not set")
			}

			store, err := report.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch {
			case remove > 0:
				if err := store.Delete(ctx, remove); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted run %d\n", remove)
				return nil

			case runID > 0:
				pages, err := store.Pages(ctx, runID)
				if err != nil {
					return err
				}
				if asJSON {
					if pages == nil {
						pages = []report.Page{}
					}
					return writeJSON(out, pages)
				}
				if len(pages) == 0 {
					fmt.Fprintf(out, "run %d has no matches\n", runID)
					return nil
				}
				for _, p := range pages {
					fmt.Fprintf(out, "%s (%s): %d matches\n", p.Source, p.Mode, len(p.Matches))
					fmt.Fprintln(out, matchTable(p.Matches))
				}
				return nil
			}

			runs, err := store.Runs(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []report.Run{}
				}
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no scans saved")
				return nil
			}
			fmt.Fprintln(out, runTable(runs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "runs to list")
	cmd.Flags().Int64Var(&runID, "run", 0, "print the matches of this run")
	cmd.Flags().Int64Var(&remove, "delete", 0, "delete this run")
	cmd.MarkFlagsMutuallyExclusive("run", "delete")
	return cmd
}

func runTable(runs []report.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Query,
			fmt.Sprintf("%d/%d", r.Matched, r.Pages),
			strings.Join(r.Roots, " "),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "QUERY", "MATCHED", "ROOTS").
		Rows(rows...).
		String()
}
