package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/core/config"
	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/pipeline"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/reply"
	"github.com/husainf4l/baridai-sub000/internal/store"
	"github.com/husainf4l/baridai-sub000/internal/worker"
)

func baseConfig() config.Config {
	return config.Config{
		Meta: config.MetaConfig{MinTokenLength: 20, SendAttempts: 1},
		Reply: config.ReplyConfig{
			DefaultText:   "thanks",
			SystemPrompt:  "be brief",
			WindowCap:     10,
			MaxSenders:    100,
			MemoryBackend: config.MemoryBackendLRU,
		},
		Pipeline: config.PipelineConfig{FanOutConcurrency: 4},
	}
}

var _ = Describe("New", func() {
	ctx := context.Background()

	It("builds a processor and a history-only generator without credentials", func() {
		p, err := pipeline.New(ctx, baseConfig(), store.NewStores(nil), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Processor).NotTo(BeNil())
		Expect(p.Generator).NotTo(BeNil())

		_, err = p.Generator.Generate(ctx, reply.ReplyRequest{SenderID: "U1", Text: "hi"})
		Expect(err).To(MatchError(reply.ErrChatDisabled))
		Expect(p.Generator.ClearHistory(ctx, "U1")).To(Succeed())
	})

	It("requires Redis for the redis memory backend", func() {
		cfg := baseConfig()
		cfg.Reply.MemoryBackend = config.MemoryBackendRedis
		_, err := pipeline.New(ctx, cfg, store.NewStores(nil), nil)
		Expect(err).To(HaveOccurred())
	})

	It("discards deliveries for a different object without touching the stores", func() {
		p, err := pipeline.New(ctx, baseConfig(), store.NewStores(nil), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Processor.Process(ctx, queue.Delivery{
			Platform: model.PlatformInstagram,
			Payload:  []byte(`{"object":"page","entry":[{"id":"P1"}]}`),
		})).To(Succeed())
	})
})

type recordingProcessor struct {
	mu   sync.Mutex
	seen []model.Platform
	fail atomic.Bool
}

func (r *recordingProcessor) Process(_ context.Context, d queue.Delivery) error {
	if r.fail.Load() {
		return errors.New("lookup failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, d.Platform)
	return nil
}

func (r *recordingProcessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

var _ = Describe("Processor", func() {
	It("drains a local queue with a worker pool and stops cleanly", func() {
		q := queue.NewLocalQueue(32, 10*time.Millisecond)
		rec := &recordingProcessor{}
		p := pipeline.NewProcessor(q, rec, 3, worker.Config{MaxAttempts: 2})

		done := make(chan error, 1)
		go func() { done <- p.Start(context.Background()) }()

		for i := 0; i < 12; i++ {
			Expect(q.Enqueue(context.Background(), queue.Delivery{Platform: model.PlatformFacebook, Payload: []byte("{}")})).To(Succeed())
		}
		Eventually(rec.count).Should(Equal(12))

		p.Stop()
		Eventually(done).Should(Receive(BeNil()))
		Expect(q.Close()).To(Succeed())
	})

	It("dead-letters deliveries that keep failing", func() {
		q := queue.NewLocalQueue(8, 10*time.Millisecond)
		rec := &recordingProcessor{}
		rec.fail.Store(true)
		p := pipeline.NewProcessor(q, rec, 1, worker.Config{MaxAttempts: 2})

		go func() { _ = p.Start(context.Background()) }()
		Expect(q.Enqueue(context.Background(), queue.Delivery{Platform: model.PlatformWhatsApp, Payload: []byte("{}")})).To(Succeed())

		Eventually(func() int { return len(q.DeadLetters()) }).Should(Equal(1))
		p.Stop()
	})

	It("keeps draining a full queue while every delivery fails", func() {
		q := queue.NewLocalQueue(4, 10*time.Millisecond)
		rec := &recordingProcessor{}
		rec.fail.Store(true)
		p := pipeline.NewProcessor(q, rec, 1, worker.Config{MaxAttempts: 3})

		done := make(chan error, 1)
		go func() { done <- p.Start(context.Background()) }()

		accepted := 0
		for i := 0; i < 12; i++ {
			enqueueCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			if q.Enqueue(enqueueCtx, queue.Delivery{Platform: model.PlatformInstagram, Payload: []byte("{}")}) == nil {
				accepted++
			}
			cancel()
		}

		Eventually(func() int { return len(q.DeadLetters()) }, 5*time.Second).Should(Equal(accepted))
		Expect(accepted).To(Equal(12))
		Expect(q.Len()).To(Equal(0))

		stopped := make(chan struct{})
		go func() {
			p.Stop()
			close(stopped)
		}()
		Eventually(stopped).Should(BeClosed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("processes a single message for the reclaimer", func() {
		q := queue.NewLocalQueue(8, 10*time.Millisecond)
		rec := &recordingProcessor{}
		p := pipeline.NewProcessor(q, rec, 2, worker.Config{})

		Expect(p.ProcessMessage(context.Background(), queue.Message{ID: "1-0", Platform: model.PlatformInstagram, Payload: []byte("{}")})).To(Succeed())
		Expect(rec.count()).To(Equal(1))
	})
})

var _ = Describe("NewHistory", func() {
	It("clears senders without a chat model", func() {
		h, err := pipeline.NewHistory(baseConfig().Reply, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.ClearHistory(context.Background(), "U1")).To(Succeed())
	})
})
