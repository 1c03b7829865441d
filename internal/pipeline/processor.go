package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/worker"
)

// Processor runs a pool of workers over one consumer, plus an optional
// reclaimer for the Redis stream.
type Processor struct {
	workers   []*worker.Worker
	reclaimer *worker.RedisReclaimer
}

func NewProcessor(consumer worker.Consumer, delivery worker.DeliveryProcessor, size int, cfg worker.Config) *Processor {
	if size <= 0 {
		size = 1
	}
	workers := make([]*worker.Worker, size)
	for i := range workers {
		workers[i] = worker.New(consumer, delivery, cfg)
	}
	return &Processor{workers: workers}
}

// ProcessMessage handles one message outside the read loop. It satisfies
// queue.MessageProcessor so a reclaimer can re-drive pending entries.
func (p *Processor) ProcessMessage(ctx context.Context, msg queue.Message) error {
	return p.workers[0].ProcessMessage(ctx, msg)
}

func (p *Processor) WithReclaimer(r *worker.RedisReclaimer) *Processor {
	p.reclaimer = r
	return p
}

// Start blocks until every worker returns.
func (p *Processor) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "starting pipeline processor", "workers", len(p.workers), "reclaimer", p.reclaimer != nil)

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		g.Go(func() error { return w.Run(ctx) })
	}
	if p.reclaimer != nil {
		g.Go(func() error {
			p.reclaimer.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// Stop signals every worker and waits for in-flight deliveries to finish.
func (p *Processor) Stop() {
	if p.reclaimer != nil {
		p.reclaimer.Stop()
	}
	for _, w := range p.workers {
		w.Stop()
	}
}
