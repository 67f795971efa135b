package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/queue"
)

func job() queue.Job {
	return queue.Job{
		Card:      domain.Card{ID: uuid.New(), OwnerID: uuid.New()},
		ChannelID: uuid.New(),
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := queue.New(4)

	in := job()
	if err := q.Enqueue(in); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if q.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", q.Depth())
	}

	out, ok := q.Dequeue(context.Background())
	if !ok {
		t.Fatal("expected a job")
	}
	if out.Card.ID != in.Card.ID || out.ChannelID != in.ChannelID {
		t.Fatal("dequeued job does not match enqueued job")
	}
}

func TestQueue_FullReturnsErrQueueFull(t *testing.T) {
	q := queue.New(2)

	if err := q.Enqueue(job()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(job()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := q.Enqueue(job())
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueue_DequeueStopsOnCancel(t *testing.T) {
	q := queue.New(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false on cancelled context")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after cancel")
	}
}
