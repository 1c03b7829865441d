// Command relay runs the gateway and the pipeline in one process, connected
// by an in-memory queue. Redis is optional here: without it dedupe is off and
// conversation memory stays in-process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/husainf4l/baridai-sub000/common/id"
	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/common/otel"
	"github.com/husainf4l/baridai-sub000/core/config"
	"github.com/husainf4l/baridai-sub000/core/db"
	"github.com/husainf4l/baridai-sub000/internal/http/middleware"
	httprouter "github.com/husainf4l/baridai-sub000/internal/http/router"
	"github.com/husainf4l/baridai-sub000/internal/pipeline"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/service"
	"github.com/husainf4l/baridai-sub000/internal/store"
	"github.com/husainf4l/baridai-sub000/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeRelay)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.InfoContext(ctx, "relay starting", "env", cfg.Env, "workers", cfg.Pipeline.LocalWorkers)

	if err := id.Init(3); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisClient := connectRedis(ctx, cfg.Pipeline.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	stores := store.NewStores(database.Queries())

	p, err := pipeline.New(ctx, cfg, stores, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	localQueue := queue.NewLocalQueue(cfg.Pipeline.LocalQueueSize, time.Second)
	processor := pipeline.NewProcessor(localQueue, p.Processor, cfg.Pipeline.LocalWorkers, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- processor.Start(ctx)
	}()

	services := service.NewServices(stores, service.NewTxRunner(database), localQueue, p.Generator, cfg.Meta, cfg.Pipeline)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{AdminAPIKey: cfg.AdminAPIKey})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Intake stops before the workers.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	_ = localQueue.Close()

	stopped := make(chan struct{})
	go func() {
		processor.Stop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded", "pending", localQueue.Len())
	case <-stopped:
		if err := <-errCh; err != nil {
			slog.ErrorContext(ctx, "processor error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}

// connectRedis returns nil when no URL is set or Redis is unreachable.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		slog.WarnContext(ctx, "invalid redis url, continuing without redis", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis unreachable, continuing without redis", "error", err)
		_ = client.Close()
		return nil
	}
	slog.InfoContext(ctx, "redis connected")
	return client
}

const banner = `
 ___ ___ _      ___   __
| _ \ __| |    /_\ \ / /
|   / _|| |__ / _ \ V /
|_|_\___|____/_/ \_\_|
`
