package cli

import (
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/infra/postgres"
)

// newIngestCmd parses the content directory and upserts it into Postgres,
// so the server can run without the markdown tree.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Parse the content directory into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}

			chapters, err := fsinfra.NewLoader(cfg.Content.Dir).LoadBook(ctx)
			if err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewChapterLoader(pool).SaveBook(ctx, chapters); err != nil {
				return err
			}
			logger.Info("content ingested", zap.Int("chapters", len(chapters)))
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chapters\n", len(chapters))
			return nil
		},
	}
}
