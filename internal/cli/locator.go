package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagefind/internal/locator"
)

func newLocatorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "locator <code>",
		Short: "Convert locator code to an engine selector and back",
		Example: `  pagefind locator "getByRole('button', { name: 'Save' })"
  pagefind locator --language python "get_by_test_id('login')"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, nil)
			if err != nil {
				return err
			}
			engine := locator.NewEngine(cfg.Search.TestIDAttribute)

			selector, err := engine.LocatorSyntaxToSelector(cfg.Search.Language, args[0], cfg.Search.TestIDAttribute)
			if err != nil {
				return fmt.Errorf("not a locator: %w", err)
			}
			back, err := engine.AsLocator(cfg.Search.Language, selector)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "selector: %s\n", selector)
			fmt.Fprintf(out, "locator:  %s\n", back)
			return nil
		},
	}
}
