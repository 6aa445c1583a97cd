package cli

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zPat/easy-edgedb/internal/app"
	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/infra/memory"
	"github.com/zPat/easy-edgedb/internal/tui"
)

// newBrowseCmd opens the whole book in a terminal reader.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [chapter]",
		Short: "Browse the book in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("not a chapter number: %q", args[0])
				}
				start = n
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo := memory.NewChapterRepository(fsinfra.NewLoader(cfg.Content.Dir), time.Hour)
			book := app.NewBookService(repo, nil, logger)
			if err := book.Load(ctx); err != nil {
				return err
			}

			reader, err := tui.NewReader(ctx, book, start)
			if err != nil {
				return err
			}

			program := tea.NewProgram(reader, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = program.Run()
			return err
		},
	}
}
