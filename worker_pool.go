package match

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted units of work on a fixed set of workers. Each
// worker pulls the next task and runs it to completion; a panicking task is
// logged and never takes its worker down.
type WorkerPool struct {
	workers    int
	tasks      *TaskQueue[func()]
	isShutdown atomic.Bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewWorkerPool creates a pool. Zero or negative worker count defaults to
// the available hardware parallelism.
func NewWorkerPool(workers int, queueCapacity int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}

	return &WorkerPool{
		workers: workers,
		tasks:   NewTaskQueue[func()](queueCapacity),
		done:    make(chan struct{}),
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
}

// Submit hands a task to the pool, blocking while the queue is full.
// Returns ErrShutdown once Shutdown has been called.
func (p *WorkerPool) Submit(task func()) error {
	if task == nil {
		return ErrInvalidParam
	}

	if p.isShutdown.Load() {
		return ErrShutdown
	}

	return p.tasks.Push(context.Background(), task)
}

// Shutdown stops intake, waits for queued tasks to drain and for all workers
// to exit. Returns ctx.Err() if the context ends first.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	if p.isShutdown.CompareAndSwap(false, true) {
		close(p.done)
	}

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) runWorker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			// Drain whatever was accepted before shutdown.
			for {
				task, ok := p.tasks.TryPop()
				if !ok {
					return
				}
				p.runTask(task)
			}
		case task := <-p.tasks.ch:
			p.runTask(task)
		}
	}
}

func (p *WorkerPool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker pool: task panicked", "panic", r)
		}
	}()

	task()
}
