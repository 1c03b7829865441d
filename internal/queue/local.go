package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrQueueClosed = errors.New("queue closed")

// LocalQueue is an in-process queue for single-instance deployments. It
// satisfies Producer and the worker's consumer contract, so the same worker
// loop drives both this and the Redis stream.
type LocalQueue struct {
	ch        chan Message
	block     time.Duration
	batchSize int
	seq       atomic.Uint64
	closed    atomic.Bool

	mu   sync.Mutex
	dead []Message
}

func NewLocalQueue(size int, block time.Duration) *LocalQueue {
	if size <= 0 {
		size = 256
	}
	if block <= 0 {
		block = time.Second
	}
	return &LocalQueue{
		ch:        make(chan Message, size),
		block:     block,
		batchSize: 10,
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, d Delivery) error {
	attempt := d.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	receivedAt := d.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	msg := Message{
		ID:         fmt.Sprintf("local-%d", q.seq.Add(1)),
		TaskType:   TaskTypeWebhookDelivery,
		Platform:   d.Platform,
		Payload:    d.Payload,
		Attempt:    attempt,
		ReceivedAt: receivedAt,
	}
	if d.TraceID != nil {
		msg.TraceID = *d.TraceID
	}
	return q.push(ctx, msg)
}

func (q *LocalQueue) push(ctx context.Context, msg Message) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue delivery: %w", ctx.Err())
	}
}

// Read waits up to the block duration for at least one message and then
// drains whatever else is immediately available, up to the batch size.
func (q *LocalQueue) Read(ctx context.Context) ([]Message, error) {
	timer := time.NewTimer(q.block)
	defer timer.Stop()

	var first Message
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return []Message{}, nil
	case first = <-q.ch:
	}

	messages := []Message{first}
	for len(messages) < q.batchSize {
		select {
		case msg := <-q.ch:
			messages = append(messages, msg)
		default:
			return messages, nil
		}
	}
	return messages, nil
}

func (q *LocalQueue) Ack(context.Context, Message) error {
	return nil
}

// Requeue never blocks. A full buffer dead-letters the message.
func (q *LocalQueue) Requeue(ctx context.Context, msg Message, errMsg string) error {
	if q.closed.Load() {
		return q.SendDLQ(ctx, msg, fmt.Sprintf("queue closed during retry: %s", errMsg))
	}

	msg.Attempt++
	select {
	case q.ch <- msg:
	default:
		msg.Attempt--
		return q.SendDLQ(ctx, msg, fmt.Sprintf("retry buffer full: %s", errMsg))
	}

	slog.InfoContext(ctx, "message requeued for retry",
		"next_attempt", msg.Attempt,
		"reason", errMsg)
	return nil
}

func (q *LocalQueue) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	q.mu.Lock()
	q.dead = append(q.dead, msg)
	q.mu.Unlock()

	slog.ErrorContext(ctx, "message sent to DLQ",
		"final_error", errMsg,
		"platform", msg.Platform)
	return nil
}

// DeadLetters returns a copy of the messages that exhausted their attempts.
func (q *LocalQueue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.dead))
	copy(out, q.dead)
	return out
}

func (q *LocalQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting deliveries. Buffered messages stay readable.
func (q *LocalQueue) Close() error {
	q.closed.Store(true)
	return nil
}
