package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/user-service/internal/command"
	"github.com/eaglebank/user-service/internal/config"
	"github.com/eaglebank/user-service/internal/handler"
	"github.com/eaglebank/user-service/internal/query"
	"github.com/eaglebank/user-service/internal/repository"
	"github.com/eaglebank/user-service/internal/service"
	"github.com/eaglebank/user-service/shared/events"
	"github.com/eaglebank/user-service/shared/middleware"
	"github.com/eaglebank/user-service/shared/models"
	redisClient "github.com/eaglebank/user-service/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence collaborator
	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open user store", zap.Error(err))
	}
	defer closeStore()

	// Redis connection (read cache + event streaming), optional
	var (
		cache     repository.ViewCache
		publisher command.EventPublisher = events.Discard{}
		redis     *redisClient.Client
	)
	if cfg.Redis.Enabled() {
		redis, err = redisClient.NewClient(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redis.Close() }()

		cache = redisClient.NewViewCache[models.User](redis.Client, cfg.Redis.CacheTTL, logger)
		publisher = events.NewPublisher(redis.Client, events.WithMaxLen(cfg.Redis.StreamMaxLen))
	} else {
		logger.Info("redis not configured, view cache and user events disabled")
	}

	// --- CQRS wiring ---
	readRepo := repository.NewUserReadRepository(store, cache)
	ageGate := service.NewAgeGate(cfg.MinimumAge)

	commandSvc := command.NewUserCommandService(store, readRepo, ageGate, publisher, logger)
	querySvc := query.NewUserQueryService(readRepo, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	userHandler := handler.NewUserHandler(commandSvc, querySvc, handler.WithMetrics(metrics))

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger), middleware.MetricsMiddleware(metrics))

	userHandler.RegisterRoutes(router.Group("/api/users"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("user service starting", zap.String("port", cfg.Port), zap.Int("minimum_age", cfg.MinimumAge),
			zap.String("storage", cfg.Storage.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Cache repair subscriber so replicas do not serve stale views
	if redis != nil {
		// A generated group belongs to this process only and is destroyed on exit.
		group, ephemeral := cfg.Redis.ConsumerGroup, cfg.Redis.ConsumerGroup == ""
		if ephemeral {
			group = "user-cache-" + uuid.NewString()
		}
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    group,
			Consumer: "user-consumer-" + uuid.NewString(),
			Stream:   events.UserEventsStream,
			Handler:  querySvc.HandleUserEvent,
			Logger:   logger,

			DestroyGroupOnExit: ephemeral,
		})
		g.Go(func() error {
			if err := subscriber.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("subscriber stopped", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (repository.UserRepository, func(), error) {
	if cfg.Backend == config.StorageMemory {
		logger.Warn("using in-memory user store, data is lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil
	}

	db, err := sql.Open(cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := repository.NewUserWriteRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, func() { _ = db.Close() }, nil
}
