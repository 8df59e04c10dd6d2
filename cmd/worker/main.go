// Package main runs the background export worker (stats CSV to S3).
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/config"
	"github.com/aura-webinar/coursestats/internal/analytics"
	"github.com/aura-webinar/coursestats/internal/catalog"
	"github.com/aura-webinar/coursestats/internal/enrollments"
	"github.com/aura-webinar/coursestats/internal/events"
	"github.com/aura-webinar/coursestats/internal/logging"
	"github.com/aura-webinar/coursestats/internal/worker"
	"github.com/aura-webinar/coursestats/pkg/database"
	"github.com/aura-webinar/coursestats/pkg/queue"
	"github.com/aura-webinar/coursestats/pkg/redis"
	"github.com/aura-webinar/coursestats/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatal("load config", zap.Error(err))
	}
	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ReportsBucket:        cfg.AWS.ReportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	catalogRepo := catalog.NewRepository(pool)
	titles := catalog.NewTitleCache(rdb.Client, catalogRepo, cfg.Stats.TitleCacheTTL, logger)
	resolver := enrollments.NewResolver(enrollments.NewRepository(pool))
	svc := analytics.NewService(events.NewRepository(pool), resolver, titles, cfg.Stats.TopN, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewExportProcessor(svc, s3Client, jobQueue, logger)

	workerCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("export worker started", zap.Int("workers", cfg.Stats.ExportWorkers))
	if err := processor.Run(workerCtx, cfg.Stats.ExportWorkers); err != nil {
		logger.Error("export worker", zap.Error(err))
	}
	logger.Info("worker stopped")
}
