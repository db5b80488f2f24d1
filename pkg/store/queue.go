package store

import (
	"context"
	"fmt"
	"sync"
)

// Job is a unit of work run exclusively on a Queue.
type Job func(ctx context.Context) error

// Future is the pending result of an enqueued Job.
type Future struct {
	done chan struct{}
	err  error
}

// Done is closed once the job has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job has finished or ctx is done. A cancelled wait
// does not stop the job.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type task struct {
	ctx context.Context
	job Job
	fut *Future
}

// queueKey marks contexts that belong to a running job.
type queueKey struct{}

// Queue runs jobs one at a time in FIFO order. A drainer goroutine is
// started when the first job arrives and exits once the queue is empty.
type Queue struct {
	mu      sync.Mutex
	busy    bool
	pending []task
}

// NewQueue creates an idle queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue schedules job and returns its future. Jobs run with a context
// that is never cancelled, so a job always completes once it has started.
// A job that enqueues onto its own queue runs the nested job inline.
func (q *Queue) Enqueue(ctx context.Context, job Job) *Future {
	fut := &Future{done: make(chan struct{})}
	if ctx.Value(queueKey{}) == q {
		fut.err = run(ctx, job)
		close(fut.done)
		return fut
	}

	q.mu.Lock()
	q.pending = append(q.pending, task{
		ctx: context.WithValue(context.WithoutCancel(ctx), queueKey{}, q),
		job: job,
		fut: fut,
	})
	start := !q.busy
	q.busy = true
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return fut
}

// Do enqueues job and waits for it.
func (q *Queue) Do(ctx context.Context, job Job) error {
	return q.Enqueue(ctx, job).Wait(ctx)
}

// Busy reports whether a job is running or waiting.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// InJob reports whether ctx belongs to a job running on q.
func (q *Queue) InJob(ctx context.Context) bool {
	return ctx.Value(queueKey{}) == q
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		t.fut.err = run(t.ctx, t.job)
		close(t.fut.done)
	}
}

func run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in queued job: %v", r)
		}
	}()
	return job(ctx)
}
