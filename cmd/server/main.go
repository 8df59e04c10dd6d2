// Package main runs the course stats HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/config"
	"github.com/aura-webinar/coursestats/internal/analytics"
	"github.com/aura-webinar/coursestats/internal/auth"
	"github.com/aura-webinar/coursestats/internal/catalog"
	"github.com/aura-webinar/coursestats/internal/enrollments"
	"github.com/aura-webinar/coursestats/internal/events"
	"github.com/aura-webinar/coursestats/internal/logging"
	"github.com/aura-webinar/coursestats/internal/middleware"
	"github.com/aura-webinar/coursestats/pkg/database"
	"github.com/aura-webinar/coursestats/pkg/queue"
	"github.com/aura-webinar/coursestats/pkg/redis"
	"github.com/aura-webinar/coursestats/pkg/response"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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

	// Presigned download links are optional; exports still queue without them.
	var presigner analytics.Presigner
	if cfg.AWS.ReportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			presigner = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Catalog and enrollments
	catalogRepo := catalog.NewRepository(pool)
	titleCache := catalog.NewTitleCache(rdb.Client, catalogRepo, cfg.Stats.TitleCacheTTL, logger)
	catalogHandler := catalog.NewHandler(catalogRepo, titleCache, logger)
	enrollmentRepo := enrollments.NewRepository(pool)
	resolver := enrollments.NewResolver(enrollmentRepo)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Stats and exports
	jobQueue := queue.NewQueue(rdb.Client, logger)
	statsService := analytics.NewService(eventRepo, resolver, titleCache, cfg.Stats.TopN, logger)
	statsHandler := analytics.NewHandler(statsService, jobQueue, presigner, logger)

	courseStaff := catalog.RequireCourseStaff(catalogRepo, enrollmentRepo)
	courseMember := catalog.RequireCourseMember(catalogRepo, enrollmentRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Event ingestion (any course member)
		api.POST("/courses/:id/events/resource-views", courseMember, eventHandler.RecordResourceView)
		api.POST("/courses/:id/events/video-watches", courseMember, eventHandler.RecordVideoWatch)

		// Own stats (any course member)
		api.GET("/courses/:id/stats/me", courseMember, statsHandler.MyStats)

		// Course-wide stats (admins and course instructors)
		api.GET("/courses/:id/stats/resources", courseStaff, statsHandler.ResourceStats)
		api.GET("/courses/:id/stats/videos", courseStaff, statsHandler.VideoStats)
		api.POST("/courses/:id/exports", courseStaff, statsHandler.CreateExport)
		api.GET("/exports/:jobId", middleware.RequireRole(middleware.StaffRoles...), statsHandler.GetExport)

		// Course content
		api.GET("/courses/:id/resources", courseStaff, catalogHandler.ListResources)
		api.PUT("/courses/:id/resources/:resourceId", courseStaff, catalogHandler.RenameResource)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
