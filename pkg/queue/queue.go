// Package queue implements the exchange queue: a FIFO of tasks drained by at
// most one worker at a time.
//
// Tasks run strictly in insertion order and never overlap. A task that
// returns an error or panics is logged, reported through the result hook and
// treated as complete; the worker moves on to the next task. Tasks are never
// retried.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrClosed is returned when enqueueing on a closed queue.
var ErrClosed = errors.New("queue: closed")

// Task is one unit of deferred work.
type Task func(ctx context.Context) error

// Result describes a finished task.
type Result struct {
	Err      error
	Duration time.Duration
	Pending  int
}

// Queue is a FIFO task queue with a single active worker.
type Queue struct {
	mu       sync.Mutex
	tasks    []Task
	draining bool
	closed   bool
	idle     chan struct{}
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	logger   *slog.Logger
	onResult func(Result)
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for failed tasks.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithResultHook registers fn to observe every finished task. It runs on the
// worker goroutine.
func WithResultHook(fn func(Result)) Option {
	return func(q *Queue) {
		q.onResult = fn
	}
}

// WithContext sets the parent context handed to tasks.
// Close cancels the derived context.
func WithContext(ctx context.Context) Option {
	return func(q *Queue) {
		q.ctx, q.cancel = context.WithCancel(ctx)
	}
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.ctx == nil {
		q.ctx, q.cancel = context.WithCancel(context.Background())
	}
	return q
}

// Enqueue appends t to the tail. It does not start draining.
func (q *Queue) Enqueue(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.tasks = append(q.tasks, t)
	return nil
}

// Drain starts the worker unless it is already running. It returns
// immediately; the worker pops and runs tasks until the queue is empty.
func (q *Queue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining || q.closed || len(q.tasks) == 0 {
		return
	}
	q.draining = true
	q.idle = make(chan struct{})
	q.wg.Add(1)
	go q.run()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 || q.closed {
			q.draining = false
			q.tasks = nil
			close(q.idle)
			q.mu.Unlock()
			return
		}
		t := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.exec(t)
	}
}

func (q *Queue) exec(t Task) {
	start := time.Now()
	err := q.call(t)
	if err != nil {
		q.logger.Error("task failed", "error", err)
	}
	if q.onResult != nil {
		q.onResult(Result{Err: err, Duration: time.Since(start), Pending: q.Len()})
	}
}

// call runs t, converting a panic into an error.
func (q *Queue) call(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("queue: task panic: %v", r)
		}
	}()
	return t(q.ctx)
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Draining reports whether the worker is running.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Wait blocks until the worker is idle or ctx is done. Tasks enqueued while
// waiting extend the wait as long as they are drained by the same worker or a
// new one started before Wait observes idleness.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.draining {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close discards pending tasks, cancels the context of the running task and
// waits for the worker to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.tasks = nil
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	return nil
}
