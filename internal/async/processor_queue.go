package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

// ProcessorQueue is a fixed pool of workers draining a bounded channel.
type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	if !job.claim() {
		q.logger.Warn("queue.job.expired",
			"worker_id", workerID, "doc_ref", job.Request.DocumentRef,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	waited := time.Since(job.SubmittedAt)
	run, err := q.proc.Process(ctx, job.Request)
	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID, "run_id", run.ID, "doc_ref", job.Request.DocumentRef,
			"stage", run.FailedStage, "error", err, "wait_ms", waited.Milliseconds(),
		)
	} else {
		q.logger.Info("queue.job.ok",
			"worker_id", workerID, "run_id", run.ID, "doc_ref", job.Request.DocumentRef,
			"wait_ms", waited.Milliseconds(),
		)
	}
	if job.Done != nil {
		job.Done <- Outcome{Run: run, Err: err}
	}
}

// Submit queues req and waits for its outcome. It fails fast with ErrQueueFull
// when no slot is free. ctx bounds only the time spent queued: once a worker
// has started the run, Submit waits for it, and the run is bounded by the
// process timeout instead. A job whose ctx ends while still queued is skipped
// and Submit returns ErrExpired.
func (q *ProcessorQueue) Submit(ctx context.Context, req pipeline.Request) (pipeline.Run, error) {
	done := make(chan Outcome, 1)
	state := new(atomic.Int32)
	if err := q.offer(Job{Request: req, SubmittedAt: time.Now(), Done: done, state: state}); err != nil {
		return pipeline.Run{}, err
	}
	select {
	case out := <-done:
		return out.Run, out.Err
	case <-ctx.Done():
		if state.CompareAndSwap(jobQueued, jobExpired) {
			return pipeline.Run{}, fmt.Errorf("%w: %w", ErrExpired, ctx.Err())
		}
		out := <-done
		return out.Run, out.Err
	}
}

// EnqueueWait queues req without waiting for the run, blocking until a slot
// frees up or ctx ends. Local inbox files use it since nothing redelivers them.
func (q *ProcessorQueue) EnqueueWait(ctx context.Context, req pipeline.Request) error {
	job := Job{Request: req, SubmittedAt: time.Now()}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.accepted", "doc_ref", req.DocumentRef, "depth", len(q.ch))
		return nil
	default:
	}
	q.logger.Debug("queue.wait", "doc_ref", req.DocumentRef, "capacity", cap(q.ch))
	select {
	case q.ch <- job:
		q.logger.Debug("queue.accepted", "doc_ref", req.DocumentRef, "depth", len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) offer(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.rejected.closed", "doc_ref", job.Request.DocumentRef)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.accepted", "doc_ref", job.Request.DocumentRef, "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("queue.rejected.full", "doc_ref", job.Request.DocumentRef, "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Depth is the number of queued, not yet started, jobs.
func (q *ProcessorQueue) Depth() int { return len(q.ch) }

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
