// Package ingest feeds local documents into the processing queue, either
// from a one-off directory scan or by watching an inbox directory.
package ingest

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

// Enqueuer accepts fire-and-forget processing requests, waiting for room
// when the queue is full. Local files have no upstream to redeliver them.
type Enqueuer interface {
	EnqueueWait(ctx context.Context, req pipeline.Request) error
}

// Inbox turns discovered files into requests for one template.
type Inbox struct {
	queue    Enqueuer
	template string
	logger   *slog.Logger
}

func NewInbox(q Enqueuer, templateName string, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{queue: q, template: templateName, logger: logger}
}

// Submit enqueues one path, blocking while the queue is full. Errors (ctx
// end, queue shut down) are logged and returned.
func (in *Inbox) Submit(ctx context.Context, path string) error {
	req := pipeline.Request{DocumentRef: path, TemplateName: in.template}
	if err := in.queue.EnqueueWait(ctx, req); err != nil {
		in.logger.Warn("ingest.enqueue.failed", "path", path, "error", err)
		return err
	}
	in.logger.Info("ingest.enqueued", "path", path, "template", in.template)
	return nil
}

// SubmitDir scans root and enqueues every supported document.
func (in *Inbox) SubmitDir(ctx context.Context, root string, skipHidden bool) (DirStats, error) {
	paths, stats, err := ScanDir(root, skipHidden)
	if err != nil {
		return stats, err
	}
	for _, p := range paths {
		if err := in.Submit(ctx, p); err != nil {
			stats.Failed++
		}
	}
	in.logger.Info("ingest.scan.done", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	return stats, nil
}

// Watch enqueues files as they appear under cfg.Roots until ctx is done.
func (in *Inbox) Watch(ctx context.Context, cfg WatchConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = in.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-events:
			if !ok {
				return nil
			}
			_ = in.Submit(ctx, p)
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			in.logger.Warn("ingest.watch.error", "error", werr)
		}
	}
}
