package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"portscanner/config"
	_ "portscanner/docs"
)

const shutdownTimeout = 10 * time.Second

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Store  TaskStore
	Logger *slog.Logger
	// APIKey enables bearer authentication when non-empty.
	APIKey string
	// RateLimiter enables per-IP rate limiting when non-nil.
	RateLimiter redis.Cmdable
	RateLimit   int64
	RateWindow  time.Duration
}

// NewRouter builds the Gin engine with middleware, the versioned API group
// and the Swagger UI.
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), SecurityHeadersMiddleware(), RequestLoggingMiddleware(opts.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	if opts.APIKey != "" {
		v1.Use(AuthMiddleware(opts.APIKey, opts.Logger))
	}
	if opts.RateLimiter != nil {
		v1.Use(RateLimitMiddleware(opts.RateLimiter, opts.RateLimit, opts.RateWindow, opts.Logger))
	}

	NewServer(opts.Store, opts.Logger).RegisterRoutes(v1)
	return router
}

// Run initializes dependencies, starts the workers and serves HTTP until
// ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	store := NewRedisStore(redisClient, cfg.TaskTTL)
	runner := NewRunner(RunSession, EngineDefaults{
		Concurrency:  cfg.Concurrency,
		ProbeTimeout: cfg.ProbeTimeout,
		Deadline:     cfg.SessionDeadline,
		ProbeRate:    cfg.ProbeRate,
		MaxInflight:  cfg.MaxInflight,
	}, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workersDone := StartWorkers(workerCtx, store, runner, cfg.TaskWorkers, logger)

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(RouterOptions{
		Store:       store,
		Logger:      logger,
		APIKey:      cfg.APIKey,
		RateLimiter: redisClient,
		RateLimit:   cfg.RateLimit,
		RateWindow:  cfg.RateWindow,
	})
	if cfg.APIKey == "" {
		logger.Warn("PORTSCAN_API_KEY is empty; API authentication disabled")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting portscanner API server", "addr", cfg.ListenAddr, "workers", cfg.TaskWorkers)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stopWorkers()
		<-workersDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	stopWorkers()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("workers did not stop before the shutdown timeout")
	}
	return err
}
