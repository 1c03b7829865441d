package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/queue"
)

type Config struct {
	MaxAttempts int
	ErrorPause  time.Duration // pause after a failed read
}

type Worker struct {
	consumer  Consumer
	processor DeliveryProcessor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor DeliveryProcessor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = time.Second
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-time.After(w.cfg.ErrorPause):
				case <-w.stopCh:
				case <-ctx.Done():
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from queue: %w", err)
	}

	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

// ProcessMessage runs one message through the processor and acks it on
// success. Exported so the reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) (err error) {
	msgID := msg.ID
	platform := string(msg.Platform)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
		Platform:  &platform,
	})

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_delivery",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("relay.platform", platform),
			attribute.Int("relay.attempt", msg.Attempt),
		))
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
			sc.RecordError(err)
		}
	}()

	slog.InfoContext(ctx, "processing delivery",
		"attempt", msg.Attempt,
		"bytes", len(msg.Payload))

	start := time.Now()
	if err := w.processor.Process(ctx, msg.Delivery()); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "delivery processing failed", "error", err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer re-drives unacked entries.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "delivery processed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
