package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pagefind/internal/discovery"
	"pagefind/internal/dom"
	"pagefind/internal/locator"
	"pagefind/internal/report"
	"pagefind/internal/search"
)

func newScanCommand(opts *options) *cobra.Command {
	var (
		asJSON   bool
		parallel int
		include  []string
		rps      float64
		database string
	)
	cmd := &cobra.Command{
		Use:   "scan <query> <dir|page|url>...",
		Short: "Search every HTML page below the given directories",
		Example: `  pagefind scan "getByTestId('checkout')" ./site
  pagefind scan --json -- '- navigation' ./docs ./blog
  pagefind scan 'nav a' ./site --include 'docs/**/*.html'
  pagefind scan '"Sign in"' https://example.com/ https://example.org/ --rate 1
  pagefind scan 'getByRole("link")' ./site --db scans.db`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, nil)
			if err != nil {
				return err
			}
			logger, err := consoleLogger(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			query, roots := args[0], args[1:]
			if cmd.Flags().Changed("include") {
				cfg.Scan.Include = include
			}
			if cmd.Flags().Changed("rate") {
				cfg.Scan.RequestsPerSecond = rps
			}
			if cmd.Flags().Changed("db") {
				cfg.Scan.Database = database
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			started := time.Now()
			svc := discovery.NewDiscoveryService(nil, logger, discovery.Options{Include: cfg.Scan.Include})
			pages, err := svc.Scan(ctx, roots)
			if err != nil {
				return err
			}

			// Remote pages are fetched no faster than the configured rate
			limit := rate.Inf
			if cfg.Scan.RequestsPerSecond > 0 {
				limit = rate.Limit(cfg.Scan.RequestsPerSecond)
			}
			limiter := rate.NewLimiter(limit, 1)

			results := make([]*QueryResult, len(pages))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(1, parallel))
			for i, page := range pages {
				g.Go(func() error {
					if dom.IsRemote(page) {
						if err := limiter.Wait(gctx); err != nil {
							return err
						}
					}
					doc, err := dom.Load(gctx, page)
					if err != nil {
						logger.Warn().Err(err).Str("page", page).Msg("skipping page")
						return nil
					}
					state := newController(doc, cfg, nil, nil, logger).Search(gctx, query)
					if len(state.Matches) == 0 {
						return nil
					}
					results[i] = &QueryResult{
						Source:  page,
						Query:   state.Query,
						Mode:    state.Mode.String(),
						Counter: search.Project(state).Counter,
						Matches: describeMatches(doc, locator.NewEngine(cfg.Search.TestIDAttribute), cfg.Search.Language, state.Matches),
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			found := make([]QueryResult, 0, len(results))
			for _, r := range results {
				if r != nil {
					found = append(found, *r)
				}
			}
			if cfg.Scan.Database != "" {
				run := report.Run{Query: query, Roots: roots, Pages: len(pages), StartedAt: started}
				id, err := saveRun(ctx, cfg.Scan.Database, run, found)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved as run %d in %s\n", id, cfg.Scan.Database)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}

			out := cmd.OutOrStdout()
			for _, r := range found {
				fmt.Fprintf(out, "%s: %d matches\n", r.Source, len(r.Matches))
				fmt.Fprintln(out, matchTable(r.Matches))
			}
			fmt.Fprintf(out, "%d of %d pages matched\n", len(found), len(pages))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the results as JSON")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", runtime.NumCPU(), "pages searched at once")
	cmd.Flags().StringArrayVar(&include, "include", nil, "doublestar pattern relative to each directory, overrides [scan] include")
	cmd.Flags().Float64Var(&rps, "rate", 0, "remote page fetches per second, overrides [scan] requests_per_second")
	cmd.Flags().StringVar(&database, "db", "", "save the results to this SQLite database, overrides [scan] database")
	return cmd
}

func saveRun(ctx context.Context, path string, run report.Run, results []QueryResult) (int64, error) {
	store, err := report.Open(path)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	pages := make([]report.Page, 0, len(results))
	for _, r := range results {
		pages = append(pages, report.Page{Source: r.Source, Mode: r.Mode, Matches: r.Matches})
	}
	return store.SaveRun(ctx, run, pages)
}
