package queue

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// Job is one unit of delivery work: a due card headed for one channel.
// The scheduler already holds the full card row when it enqueues, so jobs
// carry the card by value instead of refetching it per worker.
type Job struct {
	Card      domain.Card
	ChannelID uuid.UUID
}

// Queue is the buffered hand-off between the scheduler's tick and the
// delivery workers. Its capacity is the backpressure bound: when a large
// backlog fills it, further jobs are rejected for that tick instead of
// growing in memory without limit.
type Queue struct {
	jobs chan Job
}

func New(size int) *Queue {
	return &Queue{jobs: make(chan Job, size)}
}

// Enqueue places a job on the queue. It is non-blocking: when the queue is
// full, domain.ErrQueueFull is returned immediately so the scheduler's tick
// never stalls behind slow workers.
func (q *Queue) Enqueue(job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a job is available or ctx is cancelled.
// Returns (Job{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *Queue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case job := <-q.jobs:
		return job, true
	case <-ctx.Done():
		return Job{}, false
	}
}

// Depth returns the number of jobs currently waiting.
// Used by the dispatch snapshot handler and the queue-depth gauge.
func (q *Queue) Depth() int {
	return len(q.jobs)
}
