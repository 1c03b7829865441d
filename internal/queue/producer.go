package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, d Delivery) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, d Delivery) error {
	attempt := d.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	receivedAt := d.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	fields := map[string]any{
		"task_type":   string(TaskTypeWebhookDelivery),
		"platform":    string(d.Platform),
		"payload":     string(d.Payload),
		"received_at": receivedAt.UnixMilli(),
		"attempt":     attempt,
	}

	if d.TraceID != nil && *d.TraceID != "" {
		fields["trace_id"] = *d.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued webhook delivery", "platform", d.Platform, "bytes", len(d.Payload), "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
