package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zPat/easy-edgedb/internal/content"
)

// newCheckCmd runs the content integrity rules and reports violations the
// way compilers do, one file:line per line.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the content directory for integrity problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			violations, err := content.Check(os.DirFS(cfg.Content.Dir))
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "content is clean")
				return nil
			}

			for _, v := range violations {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			return fmt.Errorf("%d problem(s) found", len(violations))
		},
	}
}
