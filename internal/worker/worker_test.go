package worker_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/worker"
)

func delivery(id string, attempt int) queue.Message {
	return queue.Message{
		ID:       id,
		TaskType: queue.TaskTypeWebhookDelivery,
		Platform: model.PlatformInstagram,
		Payload:  []byte(`{"object":"instagram","entry":[]}`),
		Attempt:  attempt,
	}
}

var _ = Describe("Worker", func() {
	var (
		consumer  *fakeConsumer
		processor *mockProcessor
		w         *worker.Worker
		ctx       context.Context
	)

	BeforeEach(func() {
		consumer = &fakeConsumer{}
		processor = &mockProcessor{}
		w = worker.New(consumer, processor, worker.Config{MaxAttempts: 3, ErrorPause: 10 * time.Millisecond})
		ctx = context.Background()
	})

	Describe("ProcessMessage", func() {
		It("acks after successful processing", func() {
			Expect(w.ProcessMessage(ctx, delivery("1-0", 1))).To(Succeed())

			acked, _, _ := consumer.snapshot()
			Expect(acked).To(ConsistOf("1-0"))
			Expect(processor.callCount()).To(Equal(1))
			Expect(processor.calls[0].Platform).To(Equal(model.PlatformInstagram))
		})

		It("does not ack when processing fails", func() {
			processor.processFn = func(ctx context.Context, d queue.Delivery) error {
				return errors.New("db down")
			}

			Expect(w.ProcessMessage(ctx, delivery("1-0", 1))).To(MatchError("db down"))
			acked, _, _ := consumer.snapshot()
			Expect(acked).To(BeEmpty())
		})

		It("converts panics into errors", func() {
			processor.processFn = func(ctx context.Context, d queue.Delivery) error {
				panic("nil map")
			}

			err := w.ProcessMessage(ctx, delivery("1-0", 1))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("panic"))
		})
	})

	Describe("Run", func() {
		runUntil := func(check func() bool) {
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			Eventually(check).WithTimeout(time.Second).Should(BeTrue())
			w.Stop()
			Eventually(done).Should(Receive(BeNil()))
		}

		It("requeues failures below the attempt limit", func() {
			consumer.batches = [][]queue.Message{{delivery("1-0", 1)}}
			processor.processFn = func(ctx context.Context, d queue.Delivery) error {
				return errors.New("transient")
			}

			runUntil(func() bool {
				_, requeued, _ := consumer.snapshot()
				return len(requeued) == 1
			})

			_, _, dlq := consumer.snapshot()
			Expect(dlq).To(BeEmpty())
		})

		It("dead-letters failures at the attempt limit", func() {
			consumer.batches = [][]queue.Message{{delivery("1-0", 3)}}
			processor.processFn = func(ctx context.Context, d queue.Delivery) error {
				return errors.New("still failing")
			}

			runUntil(func() bool {
				_, _, dlq := consumer.snapshot()
				return len(dlq) == 1
			})

			_, requeued, _ := consumer.snapshot()
			Expect(requeued).To(BeEmpty())
		})

		It("keeps running after read errors", func() {
			consumer.readErr = errors.New("redis unavailable")

			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
			w.Stop()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("processes a batch in order", func() {
			consumer.batches = [][]queue.Message{{delivery("1-0", 1), delivery("2-0", 1)}}

			runUntil(func() bool {
				acked, _, _ := consumer.snapshot()
				return len(acked) == 2
			})

			acked, _, _ := consumer.snapshot()
			Expect(acked).To(Equal([]string{"1-0", "2-0"}))
		})
	})
})
