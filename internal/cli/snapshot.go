package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"pagefind/internal/aria"
	"pagefind/internal/dom"
)

func newSnapshotCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <page>",
		Short: "Print the accessibility snapshot of a page as a template",
		Long: `snapshot prints the page's accessibility tree in the template syntax
accepted by aria searches, so any part of it can be pasted back as a query.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(opts, nil); err != nil {
				return err
			}
			doc, err := dom.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var text string
			doc.Read(func(root *html.Node) {
				text = aria.Snapshot(dom.Body(root)).String()
			})
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
