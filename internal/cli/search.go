package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/search"
)

// newSearchCmd searches the book from the terminal. The index is built
// fresh in memory; the server keeps a persistent one.
func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the book",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			chapters, err := fsinfra.NewLoader(cfg.Content.Dir).LoadBook(ctx)
			if err != nil {
				return err
			}

			idx, err := search.Open(":memory:")
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Reindex(ctx, chapters); err != nil {
				return err
			}

			results, err := idx.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, r := range results {
				snippet := strings.NewReplacer("<mark>", "", "</mark>", "").Replace(r.Snippet)
				fmt.Fprintf(out, "chapter %d — %s\n    %s\n", r.Chapter, r.Title, snippet)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}
