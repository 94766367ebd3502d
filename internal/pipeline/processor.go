// Package pipeline sequences one document through fetch, crack, template
// resolution, extraction and dispatch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/crack"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/sink"
	"github.com/joseph-ayodele/docproc/internal/template"
)

type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type Resolver interface {
	Resolve(ctx context.Context, name string) (template.Template, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, docRef string, res llm.Result) []sink.Outcome
}

// Processor is the only component that calls the others.
type Processor struct {
	Source     Fetcher
	Cracker    crack.Cracker
	Resolver   Resolver
	Extractor  llm.Extractor
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

func NewProcessor(src Fetcher, cr crack.Cracker, res Resolver, ex llm.Extractor, d Dispatcher, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Source: src, Cracker: cr, Resolver: res, Extractor: ex, Dispatcher: d, Logger: logger}
}

// Process runs req to a terminal state. The returned error is nil exactly when
// the run is acknowledged; otherwise it is a *StageError wrapping
// ErrProcessingFailed and the stage's sentinel.
func (p *Processor) Process(ctx context.Context, req Request) (Run, error) {
	run := Run{
		ID:        uuid.New(),
		Request:   req,
		State:     constants.StateReceived,
		StartedAt: time.Now(),
	}
	ctx = common.WithRequestID(ctx, run.ID.String())
	if req.TraceID != "" {
		ctx = common.WithTraceID(ctx, req.TraceID)
	}
	log := p.Logger.With("req_id", run.ID.String(), "doc_ref", req.DocumentRef, "template", req.TemplateName)
	log.Info("processor.run.start", "event_id", req.EventID, "trace_id", req.TraceID)

	doc, err := p.Source.Fetch(ctx, req.DocumentRef)
	if err != nil {
		return p.fail(log, run, constants.StageSource, wrapSentinel(err, common.ErrSourceRetrieval))
	}
	log.Info("processor.source.ok", "bytes", len(doc))

	cracked, err := p.Cracker.Crack(ctx, doc)
	if err != nil {
		return p.fail(log, run, constants.StageCracking, wrapSentinel(err, common.ErrCracking))
	}
	if cracked.Empty() {
		return p.fail(log, run, constants.StageCracking, fmt.Errorf("%w: no text extracted (method %s)", common.ErrCracking, cracked.Method))
	}
	run.State = constants.StateTextExtracted
	run.Text = cracked.Text
	log.Info("processor.crack.ok",
		"method", cracked.Method,
		"pages", cracked.Pages,
		"lines", cracked.Lines,
		"invoice_score", crack.InvoiceScore(cracked.Text),
		"elapsed_ms", cracked.Duration.Milliseconds(),
	)

	tpl, err := p.Resolver.Resolve(ctx, req.TemplateName)
	if err != nil {
		return p.fail(log, run, constants.StageTemplate, wrapSentinel(err, common.ErrTemplateNotFound))
	}
	run.State = constants.StateTemplateResolved
	run.Template = tpl.Name
	log.Info("processor.template.ok", "fields", len(tpl.Fields), "static", tpl.Static)

	res, err := p.Extractor.Extract(ctx, tpl, cracked.Text)
	if err != nil {
		return p.fail(log, run, constants.StageExtraction, wrapSentinel(err, common.ErrExtraction))
	}
	if res.Empty() {
		return p.fail(log, run, constants.StageExtraction, common.ErrEmptyResult)
	}
	run.State = constants.StateFieldsExtracted
	run.Result = res

	run.Outcomes = p.Dispatcher.Dispatch(common.WithTemplate(ctx, tpl.Name), req.DocumentRef, res)
	run.State = constants.StateDispatched
	log.Debug("processor.dispatch.done", "sinks", len(run.Outcomes))

	run.State = constants.StateAcknowledged
	run.FinishedAt = time.Now()
	log.Info("processor.run.ok",
		"fields", res.Len(),
		"failed_sinks", run.FailedSinks(),
		"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

func (p *Processor) fail(log *slog.Logger, run Run, stage constants.Stage, err error) (Run, error) {
	serr := &StageError{Stage: stage, Err: err}
	run.State = constants.StateFailed
	run.FailedStage = stage
	run.Err = serr
	run.FinishedAt = time.Now()
	log.Error("processor.run.failed",
		"stage", stage,
		"error", err,
		"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, serr
}

// wrapSentinel keeps err as is when it already carries a stage sentinel.
func wrapSentinel(err, sentinel error) error {
	for _, s := range []error{
		common.ErrSourceRetrieval, common.ErrCracking, common.ErrTemplateNotFound,
		common.ErrInvalidTemplate, common.ErrExtraction, common.ErrEmptyResult,
	} {
		if errors.Is(err, s) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
