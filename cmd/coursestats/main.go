// Package main provides the coursestats CLI: offline usage reports read from
// the same Postgres the server writes to.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/config"
	"github.com/aura-webinar/coursestats/internal/analytics"
	"github.com/aura-webinar/coursestats/internal/auth"
	"github.com/aura-webinar/coursestats/internal/catalog"
	"github.com/aura-webinar/coursestats/internal/enrollments"
	"github.com/aura-webinar/coursestats/internal/events"
	"github.com/aura-webinar/coursestats/internal/logging"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/usagestats"
	"github.com/aura-webinar/coursestats/pkg/database"
	"github.com/aura-webinar/coursestats/pkg/redis"
)

// userStore finds and creates users for the CLI.
type userStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, username, email, passwordHash, fullName string, role models.Role) (*models.User, error)
}

// backend is what the subcommands run against.
type backend struct {
	svc   *analytics.Service
	users userStore
	close func()
}

type openFunc func(ctx context.Context, logger *zap.Logger) (*backend, error)

type rootOptions struct {
	verbose bool
	logger  *zap.Logger
	open    openFunc
}

func main() {
	rootCmd := newRootCmd(openBackend)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	opts := &rootOptions{open: open}
	rootCmd := &cobra.Command{
		Use:           "coursestats",
		Short:         "Course resource and video usage reports",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			opts.logger = logging.NewConsole(opts.verbose)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log build details to stderr")

	rootCmd.AddCommand(newStatsCmd(opts, models.KindResources))
	rootCmd.AddCommand(newStatsCmd(opts, models.KindVideos))
	rootCmd.AddCommand(newUserAddCmd(opts))
	return rootCmd
}

// openBackend connects to Postgres and, when reachable, Redis for the title cache.
func openBackend(ctx context.Context, logger *zap.Logger) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	closers := []func(){pool.Close}

	catalogRepo := catalog.NewRepository(pool)
	var titles usagestats.TitleResolver = catalogRepo
	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("title cache disabled", zap.Error(err))
	} else {
		titles = catalog.NewTitleCache(rdb.Client, catalogRepo, cfg.Stats.TitleCacheTTL, logger)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	resolver := enrollments.NewResolver(enrollments.NewRepository(pool))
	svc := analytics.NewService(events.NewRepository(pool), resolver, titles, cfg.Stats.TopN, logger)
	return &backend{
		svc:   svc,
		users: auth.NewRepository(pool),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
