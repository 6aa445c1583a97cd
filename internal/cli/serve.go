package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/config"
	fsinfra "github.com/zPat/easy-edgedb/internal/infra/fs"
	"github.com/zPat/easy-edgedb/internal/infra/memory"
	"github.com/zPat/easy-edgedb/internal/infra/postgres"
	redisinfra "github.com/zPat/easy-edgedb/internal/infra/redis"
	"github.com/zPat/easy-edgedb/internal/render"
	"github.com/zPat/easy-edgedb/internal/search"
	transport "github.com/zPat/easy-edgedb/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the book over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload on content changes (implies live reload)")
	return cmd
}

func runServer(ctx context.Context, watchFlag bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchFlag {
		cfg.Content.Watch = true
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var loader app.ChapterLoader = fsinfra.NewLoader(cfg.Content.Dir)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewChapterLoader(pool)
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	var repo app.ChapterRepository
	if redisClient != nil {
		repo = redisinfra.NewChapterRepository(redisClient, loader, cacheTTL)
	} else {
		repo = memory.NewChapterRepository(loader, cacheTTL)
	}

	idx, err := search.Open(cfg.Search.Path)
	if err != nil {
		return err
	}
	defer idx.Close()

	book := app.NewBookService(repo, idx, logger)
	if err := book.Load(ctx); err != nil {
		return err
	}

	var sessions app.SessionStore = memory.NewSessionStore()
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}
	practice := app.NewPracticeService(book, sessions)

	var hub *transport.ReloadHub
	if cfg.Content.Watch {
		if cfg.Postgres.URL != "" {
			logger.Warn("watch mode ignored: content is served from postgres, not the filesystem")
		} else {
			hub = transport.NewReloadHub(logger)
			watcher, err := fsinfra.NewWatcher(cfg.Content.Dir, func(ctx context.Context) {
				if err := book.Reload(ctx); err != nil {
					logger.Error("reload failed", zap.Error(err))
					return
				}
				hub.Broadcast()
			}, logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()
		}
	}

	handler := transport.NewHandler(book, practice, render.NewHTML(), hub, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("serving the book", zap.String("addr", server.Addr), zap.Bool("watch", hub != nil))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
