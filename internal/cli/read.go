package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/render"
)

// newReadCmd prints one chapter to the terminal.
func newReadCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "read <chapter>",
		Short: "Read a chapter in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number < 1 {
				return fmt.Errorf("not a chapter number: %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ch, err := fsinfra.NewLoader(cfg.Content.Dir).LoadChapter(cmd.Context(), number)
			if err != nil {
				return err
			}

			term, err := render.NewTerm(width)
			if err != nil {
				return err
			}
			out, err := term.Chapter(ch)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}
