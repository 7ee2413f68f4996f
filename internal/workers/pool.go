// Package workers runs a fixed pool of goroutines over a list of tasks. Each
// worker owns a private handler (and with it, any non thread-safe resource
// such as a morphological analyzer); results and log messages are funneled to
// a single coordinating goroutine.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handler processes tasks for one worker.
type Handler[T, R any] interface {
	Handle(ctx context.Context, task T) (R, error)
	Close() error
}

// Factory builds the handler for worker id. It runs on the worker goroutine.
type Factory[T, R any] func(id int, log Logger) (Handler[T, R], error)

// Options configures Run.
type Options struct {
	// Workers is the pool size; DefaultWorkers() when not positive.
	Workers int
	// QueueSize bounds the task channel; twice the pool size when not positive.
	QueueSize int
	// Logger receives worker log messages; slog.Default() when nil.
	Logger *slog.Logger
	// Progress is called from the coordinating goroutine after each task.
	Progress func(done, total int)
}

// DefaultWorkers leaves one CPU for the coordinator and the log listener.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n < 3 {
		return 1
	}
	return n - 1
}

// TaskError reports the task a handler failed on.
type TaskError struct {
	Worker  int
	Index   int
	Message string
	Cause   error
}

func (e *TaskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("worker %d: task %d: %s: %v", e.Worker, e.Index, e.Message, e.Cause)
	}
	return fmt.Sprintf("worker %d: task %d: %s", e.Worker, e.Index, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

type job[T any] struct {
	index int
	task  T
}

type completion[R any] struct {
	index  int
	result R
}

// Run processes tasks on the pool and returns the results in task order.
//
// Any handler or factory error is fatal: the shared context is cancelled, the
// remaining tasks are abandoned and the first error is returned. There are no
// retries.
func Run[T, R any](ctx context.Context, opts Options, tasks []T, factory Factory[T, R]) ([]R, error) {
	results := make([]R, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	n := opts.Workers
	if n <= 0 {
		n = DefaultWorkers()
	}
	n = min(n, len(tasks))
	queue := opts.QueueSize
	if queue <= 0 {
		queue = 2 * n
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	messages := make(chan message, 64)
	listening := make(chan struct{})
	go func() {
		defer close(listening)
		for m := range messages {
			logger.Log(context.Background(), m.level, m.msg, append(m.args, "worker", m.worker)...)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job[T], queue)
	done := make(chan completion[R], n)

	g.Go(func() error {
		// Closing jobs tells every worker there is nothing left.
		defer close(jobs)
		for i, t := range tasks {
			select {
			case jobs <- job[T]{index: i, task: t}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for id := 0; id < n; id++ {
		id := id
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return work(gctx, id, Logger{ch: messages, worker: id}, jobs, done, factory)
		})
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	finished := 0
	for c := range done {
		results[c.index] = c.result
		finished++
		if opts.Progress != nil {
			opts.Progress(finished, len(tasks))
		}
	}

	err := g.Wait()
	close(messages)
	<-listening
	if err != nil {
		return nil, err
	}
	return results, nil
}

func work[T, R any](ctx context.Context, id int, log Logger, jobs <-chan job[T], done chan<- completion[R], factory Factory[T, R]) error {
	h, err := factory(id, log)
	if err != nil {
		return &TaskError{Worker: id, Index: -1, Message: "failed to start worker", Cause: err}
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("failed to close handler", "error", cerr)
		}
	}()

	log.Debug("worker started")
	for j := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r, err := h.Handle(ctx, j.task)
		if err != nil {
			return &TaskError{Worker: id, Index: j.index, Message: "task failed", Cause: err}
		}
		select {
		case done <- completion[R]{index: j.index, result: r}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Debug("worker finished")
	return nil
}
