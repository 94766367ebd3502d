// Package async runs pipeline requests on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

var (
	ErrQueueFull   = errors.New("processing queue is full")
	ErrQueueClosed = errors.New("processing queue is shutting down")
	// ErrExpired means the caller gave up before a worker picked the job up.
	// The job is then skipped, so nothing was processed.
	ErrExpired = errors.New("request expired while queued")
)

const (
	jobQueued int32 = iota
	jobStarted
	jobExpired
)

// Processor runs one request to completion.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Run, error)
}

// Job is one queued request. Done, when set, receives the outcome.
type Job struct {
	Request     pipeline.Request
	SubmittedAt time.Time
	Done        chan<- Outcome

	state *atomic.Int32 // nil for fire-and-forget jobs
}

// claim moves a waited-on job from queued to started. It fails when the
// submitter already gave up.
func (j Job) claim() bool {
	return j.state == nil || j.state.CompareAndSwap(jobQueued, jobStarted)
}

type Outcome struct {
	Run pipeline.Run
	Err error
}

type Queue interface {
	Submit(ctx context.Context, req pipeline.Request) (pipeline.Run, error)
	EnqueueWait(ctx context.Context, req pipeline.Request) error
	Shutdown(ctx context.Context)
}
