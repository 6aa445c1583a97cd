// Package cli wires the easy-edgedb commands: the reading server plus the
// terminal tools for authors and readers.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zPat/easy-edgedb/internal/config"
)

var (
	port       string
	configPath string
	contentDir string
	verbose    bool

	logger *zap.Logger
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "easy-edgedb",
		Short: "Serve and explore the Easy EdgeDB book",
		Long: `easy-edgedb turns a directory of book chapters into a readable site:
an HTTP server with practice sessions and search, plus terminal commands
for reading, quizzing and checking the content.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = buildLogger(cfg.Log.Mode, verbose)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&contentDir, "content", "", "content directory (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newQuizCmd())
	cmd.AddCommand(newSearchCmd())
	return cmd
}

// buildLogger follows the config's log mode; --verbose lowers the level to
// debug either way.
func buildLogger(mode string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig folds the persistent flags into the file+env configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if contentDir != "" {
		cfg.Content.Dir = contentDir
	}
	return cfg, nil
}
