package match

import "context"

// TaskQueue is a FIFO handoff between producers and consumers. Items are
// transferred atomically; order of delivery is submission order. Consumers
// can either wait for the next item or attempt a non-blocking pop.
type TaskQueue[T any] struct {
	ch chan T
}

// NewTaskQueue creates a queue with the given capacity.
func NewTaskQueue[T any](capacity int) *TaskQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}

	return &TaskQueue[T]{
		ch: make(chan T, capacity),
	}
}

// Push enqueues an item, blocking while the queue is full. Returns
// ErrTimeout if the context ends first.
func (q *TaskQueue[T]) Push(ctx context.Context, item T) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

// WaitPop blocks until an item is available or the context ends.
func (q *TaskQueue[T]) WaitPop(ctx context.Context) (T, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ErrTimeout
	}
}

// TryPop returns the next item without blocking, reporting false when the
// queue is empty.
func (q *TaskQueue[T]) TryPop() (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued items.
func (q *TaskQueue[T]) Len() int {
	return len(q.ch)
}
