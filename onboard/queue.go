package onboard

import (
	"context"
	"time"
)

const (
	QUEUE_DEPTH        = 10
	QUEUE_SEND_TIMEOUT = 100 * time.Millisecond
)

// Queue is a bounded FIFO between event producers and a single consumer loop. Producers never
// block for longer than QUEUE_SEND_TIMEOUT: once it expires the oldest pending item is dropped
// to make room.
type Queue[T any] struct {
	items chan T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{items: make(chan T, QUEUE_DEPTH)}
}

// Send enqueues item and reports whether an older item had to be evicted.
func (q *Queue[T]) Send(item T) (evicted bool) {
	select {
	case q.items <- item:
		return false
	default:
	}

	timer := time.NewTimer(QUEUE_SEND_TIMEOUT)
	defer timer.Stop()

	select {
	case q.items <- item:
		return false
	case <-timer.C:
	}

	for {
		select {
		case <-q.items:
			evicted = true
		default:
		}

		select {
		case q.items <- item:
			return
		default:
			// the consumer raced us to the free slot and another producer filled it
		}
	}
}

// Receive waits up to timeout for an item. ok is false on timeout or cancellation.
func (q *Queue[T]) Receive(ctx context.Context, timeout time.Duration) (item T, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item = <-q.items:
		return item, true
	case <-timer.C:
	case <-ctx.Done():
	}
	return
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}
