package worker

import (
	"context"
	"sync"

	"github.com/amd-aig-aima/bimserver/internal/idempotency"
	"github.com/amd-aig-aima/bimserver/internal/logging"
	"github.com/amd-aig-aima/bimserver/internal/progress"
	"github.com/amd-aig-aima/bimserver/internal/queue"
)

// Pool runs N logical workers, each an independent goroutine draining
// the shared queue. A shutdown signal (ctx cancellation) delivers to
// in-flight handlers cooperatively; Run returns once every worker has
// drained and exited.
type Pool struct {
	queue    *queue.Queue
	tracker  *idempotency.Tracker
	registry *Registry
	notifier *progress.Notifier
	count    int
}

// NewPool wires a worker pool. count is the number of concurrent
// workers (spec default 1).
func NewPool(q *queue.Queue, tracker *idempotency.Tracker, registry *Registry, notifier *progress.Notifier, count int) *Pool {
	if count <= 0 {
		count = 1
	}
	return &Pool{queue: q, tracker: tracker, registry: registry, notifier: notifier, count: count}
}

// Run starts all workers and blocks until ctx is cancelled and every
// worker has drained its in-flight envelope.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.count)
	for i := 0; i < p.count; i++ {
		go func(id int) {
			defer wg.Done()
			p.runOne(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runOne(ctx context.Context, id int) {
	for {
		env, ok := p.queue.Dequeue(ctx)
		if !ok {
			if ctx.Err() != nil {
				logging.Info("worker: shutting down", "worker", id)
				return
			}
			// Queue closed with no shutdown signal: nothing left to drain.
			return
		}
		p.handle(ctx, env)
	}
}

// handle implements the dispatch steps from spec §4.10 (2)-(7).
func (p *Pool) handle(ctx context.Context, env queue.Envelope) {
	if p.tracker.IsCompleted(env.JobID) {
		logging.Info("worker: duplicate envelope after success, acking", "jobId", env.JobID)
		return
	}
	if !p.tracker.TryMarkAsProcessing(env.JobID) {
		logging.Info("worker: duplicate in-flight envelope, acking", "jobId", env.JobID)
		return
	}

	factory, err := p.registry.Lookup(env.Type)
	if err != nil {
		logging.Error(err, "worker: no handler for job type", "jobId", env.JobID, "type", env.Type)
		p.tracker.MarkAsFailed(env.JobID)
		return
	}

	handler := factory()
	if err := handler.HandleAsync(ctx, env.JobID, env.PayloadJSON); err != nil {
		logging.Error(err, "worker: handler failed", "jobId", env.JobID, "type", env.Type)
		p.tracker.MarkAsFailed(env.JobID)
		p.notifier.Publish(progress.Event{JobID: env.JobID, Stage: "Failed", IsComplete: true, IsSuccess: false, ErrorMessage: err.Error()})
		return
	}
	p.tracker.MarkAsCompleted(env.JobID)
	p.notifier.Publish(progress.Event{JobID: env.JobID, Stage: progress.StageComplete, PercentComplete: progress.PercentComplete, IsComplete: true, IsSuccess: true})
}
