package match

import (
	"context"
	"sync"
)

// Future carries the outcome of a command executed on a worker back to the
// submitter. Every command routed through the manager resolves exactly one
// future, so neither trades nor errors can vanish into the pool.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

// resolve publishes the outcome. Only the first call has any effect.
func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the command has executed or the context ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ErrTimeout
	}
}

// Done returns a channel closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
