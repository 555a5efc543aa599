package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// DeadLetter is a job that exhausted its retries
type DeadLetter struct {
	Job    models.DispatchJob
	Reason string
}

// MemoryQueue is an in-process JobQueue with the same at-least-once
// contract as Queue. Failed jobs are redelivered immediately until
// maxRetries is reached, then dead-lettered.
type MemoryQueue struct {
	jobs       chan *models.DispatchJob
	maxRetries int
	logger     *logging.Logger

	mu   sync.Mutex
	dead []DeadLetter
}

// NewMemoryQueue creates a queue holding up to buffer pending jobs
func NewMemoryQueue(buffer, maxRetries int, logger *logging.Logger) *MemoryQueue {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &MemoryQueue{
		jobs:       make(chan *models.DispatchJob, buffer),
		maxRetries: maxRetries,
		logger:     logging.OrNop(logger),
	}
}

// Publish enqueues a copy of the job
func (q *MemoryQueue) Publish(ctx context.Context, job *models.DispatchJob) error {
	c := *job
	c.Attempt = 0
	c.TargetPlatforms = append([]models.Platform(nil), job.TargetPlatforms...)

	select {
	case q.jobs <- &c:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to publish job: %w", ctx.Err())
	}
}

// Consume runs handler on a bounded pool until ctx is done
func (q *MemoryQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-q.jobs:
			p.Go(func() {
				q.handle(ctx, job, handler)
			})
		}
	}
}

func (q *MemoryQueue) handle(ctx context.Context, job *models.DispatchJob, handler Handler) {
	err := runHandler(ctx, handler, job)
	if err == nil {
		return
	}

	logger := q.logger.WithVideoID(job.VideoID)
	if job.Attempt >= q.maxRetries {
		logger.WarnWithErr("Job moved to dead letter queue", err)
		q.mu.Lock()
		q.dead = append(q.dead, DeadLetter{Job: *job, Reason: err.Error()})
		q.mu.Unlock()
		return
	}

	logger.WarnWithErr("Dispatch job failed, redelivering", err)
	job.Attempt++

	// Requeue off the pool so a full buffer cannot stall the consumer loop
	go func() {
		select {
		case q.jobs <- job:
		case <-ctx.Done():
		}
	}()
}

// Pending returns the number of jobs waiting for a consumer
func (q *MemoryQueue) Pending() int {
	return len(q.jobs)
}

// DeadLetters returns the jobs that exhausted their retries
func (q *MemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out
}
