package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/locator"
	"pagefind/internal/overlay"
	"pagefind/internal/search"
)

// QueryResult is the outcome of one immediate search.
type QueryResult struct {
	Source  string             `json:"source"`
	Query   string             `json:"query"`
	Mode    string             `json:"mode"`
	Counter string             `json:"counter"`
	Matches []domain.MatchInfo `json:"matches"`
}

func newQueryCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "query <page> <query>",
		Short: "Run one search and print every match",
		Long: `query loads a page, runs one search without debouncing and prints every
match with a generated locator. A query that starts with "-", such as an aria
template, goes after "--" so it is not read as a flag.`,
		Example: `  pagefind query index.html "getByRole('button')"
  pagefind query index.html -- '- heading [level=1]'
  pagefind query https://example.com '"More information"' --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, nil)
			if err != nil {
				return err
			}
			logger, err := consoleLogger(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			doc, err := dom.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ctrl := newController(doc, cfg, nil, nil, logger)
			state := ctrl.Search(cmd.Context(), args[1])

			result := QueryResult{
				Source:  args[0],
				Query:   state.Query,
				Mode:    state.Mode.String(),
				Counter: search.Project(state).Counter,
				Matches: describeMatches(doc, locator.NewEngine(cfg.Search.TestIDAttribute), cfg.Search.Language, state.Matches),
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			writeQueryResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// describeMatches summarizes matches with a generated locator for each.
func describeMatches(doc *dom.Document, engine *locator.Engine, language string, matches []*html.Node) []domain.MatchInfo {
	infos := make([]domain.MatchInfo, 0, len(matches))
	for i, el := range matches {
		var tooltip string
		doc.Read(func(*html.Node) {
			if gen, err := engine.GenerateSelector(el, locator.GenerateOptions{Language: language}); err == nil {
				tooltip = gen.Locator
			}
		})
		info := overlay.Describe(doc, el, tooltip)
		info.Index = i
		infos = append(infos, info)
	}
	return infos
}

func writeQueryResult(w io.Writer, r QueryResult) {
	if len(r.Matches) == 0 {
		fmt.Fprintf(w, "%s (%s): no match\n", r.Query, r.Mode)
		return
	}
	fmt.Fprintf(w, "%s (%s): %d matches\n", r.Query, r.Mode, len(r.Matches))
	fmt.Fprintln(w, matchTable(r.Matches))
}

func matchTable(matches []domain.MatchInfo) string {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{strconv.Itoa(m.Index + 1), m.Tag, m.Locator, m.Text})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TAG", "LOCATOR", "TEXT").
		Rows(rows...).
		String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
