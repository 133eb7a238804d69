package jobs

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

// JobRunner executes a single job. *Executor implements it.
type JobRunner interface {
	Execute(ctx context.Context, job Job) Result
}

// Queue runs jobs on a fixed set of workers. Results are delivered to the
// handler from the worker goroutines.
type Queue struct {
	runner  JobRunner
	logger  *slog.Logger
	workers int
	timeout time.Duration
	handle  func(Result)
	base    context.Context

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultHandler(fn func(Result)) Option {
	return func(q *Queue) { q.handle = fn }
}

// WithBaseContext parents every job context on ctx, so cancelling it fails
// the jobs still waiting in the queue.
func WithBaseContext(ctx context.Context) Option {
	return func(q *Queue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}

func NewQueue(runner JobRunner, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
		base:    context.Background(),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(q.base, q.timeout)
					res := q.runner.Execute(ctx, job)
					cancel()
					res.Job = job

					if res.Err != nil {
						q.logger.Error("comparison failed", "worker_id", workerID, "identifier", job.Identifier, "error", res.Err)
					} else {
						q.logger.Debug("comparison finished", "worker_id", workerID, "identifier", job.Identifier)
					}
					if q.handle != nil {
						q.handle(res)
					}
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the buffer is full. It fails once Shutdown has been
// called or when ctx ends first.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "identifier", job.Identifier)
		return common.NewAppError(common.CodeUsage, "queue is shut down", common.ErrUnsupported)
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued comparison", "identifier", job.Identifier)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "identifier", job.Identifier)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for
// ctx to end.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// RunAll executes jobs on a fresh queue and returns their results in input
// order.
func RunAll(ctx context.Context, runner JobRunner, jobs []Job, logger *slog.Logger, opts ...Option) ([]Result, error) {
	results := make([]Result, len(jobs))
	var mu sync.Mutex
	collect := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Job.seq] = r
	}

	q := NewQueue(runner, logger, append(opts, WithBaseContext(ctx), WithResultHandler(collect))...)
	for i := range jobs {
		job := jobs[i]
		job.seq = i
		if err := q.Enqueue(ctx, job); err != nil {
			q.Shutdown(context.Background())
			return nil, err
		}
	}
	q.Shutdown(context.Background())
	return results, ctx.Err()
}

// Summary counts the verdicts of a batch.
type Summary struct {
	Total      int
	Matched    int
	Mismatched int
	Failed     int
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil || r.Outcome == nil:
			s.Failed++
		case r.Outcome.Matched:
			s.Matched++
		default:
			s.Mismatched++
		}
	}
	return s
}
