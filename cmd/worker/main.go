package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/husainf4l/baridai-sub000/common/id"
	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/common/otel"
	"github.com/husainf4l/baridai-sub000/core/config"
	"github.com/husainf4l/baridai-sub000/core/db"
	"github.com/husainf4l/baridai-sub000/internal/pipeline"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/store"
	"github.com/husainf4l/baridai-sub000/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
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

	slog.InfoContext(ctx, "relay worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer,
		"workers", cfg.Pipeline.LocalWorkers)

	// Separate node id from the gateway
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	p, err := pipeline.New(ctx, cfg, store.NewStores(database.Queries()), redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	processor := pipeline.NewProcessor(consumer, p.Processor, cfg.Pipeline.LocalWorkers, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})
	processor.WithReclaimer(worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:      cfg.Pipeline.RedisStream,
		Group:       cfg.Pipeline.RedisGroup,
		Consumer:    cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:     5 * time.Minute,
		Interval:    time.Minute,
		BatchSize:   10,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	}, consumer, processor.ProcessMessage))

	errCh := make(chan error, 1)
	go func() {
		errCh <- processor.Start(ctx)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		processor.Stop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case <-stopped:
		if err := <-errCh; err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
 ___ ___ _      ___   __ __      _____  ___ _  _____ ___
| _ \ __| |    /_\ \ / / \ \    / / _ \| _ \ |/ / __| _ \
|   / _|| |__ / _ \ V /   \ \/\/ / (_) |   / ' <| _||   /
|_|_\___|____/_/ \_\_|     \_/\_/ \___/|_|_\_|\_\___|_|_\
`
