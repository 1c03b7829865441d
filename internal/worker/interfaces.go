package worker

import (
	"context"

	"github.com/husainf4l/baridai-sub000/internal/queue"
)

// Consumer abstracts the message queue so the same loop drives the Redis
// stream and the in-process queue.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// DeliveryProcessor runs the event pipeline for one webhook delivery.
// A returned error means the delivery should be retried.
type DeliveryProcessor interface {
	Process(ctx context.Context, d queue.Delivery) error
}
