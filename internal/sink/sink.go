// Package sink delivers extraction results to output destinations.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

// Sink is one output destination. Deliver must be safe for concurrent use.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, docRef string, res llm.Result) error
	Close() error
}

// Outcome records what happened to one sink during a dispatch.
type Outcome struct {
	Sink    string
	Err     error
	Elapsed time.Duration
}

// Record is the payload shared by the line-delimited and realtime sinks.
type Record struct {
	BlobName       string     `json:"blob_name"`
	InvoiceDetails llm.Result `json:"invoice_details"`
}

// Dispatcher fans a result out to every sink in order.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(sinks []Sink, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, log: logger}
}

// Dispatch never fails: each sink's error is logged and reported in its Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, docRef string, res llm.Result) []Outcome {
	rid := common.RequestIDFromContext(ctx)
	out := make([]Outcome, 0, len(d.sinks))
	for _, s := range d.sinks {
		start := time.Now()
		err := d.deliver(ctx, s, docRef, res)
		o := Outcome{Sink: s.Name(), Err: err, Elapsed: time.Since(start)}
		if err != nil {
			d.log.Error("sink.deliver.failed",
				"req_id", rid, "sink", s.Name(), "doc_ref", docRef,
				"error", err, "elapsed_ms", o.Elapsed.Milliseconds(),
			)
		} else {
			d.log.Info("sink.deliver.ok",
				"req_id", rid, "sink", s.Name(), "doc_ref", docRef,
				"elapsed_ms", o.Elapsed.Milliseconds(),
			)
		}
		out = append(out, o)
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, docRef string, res llm.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("sink.deliver.panic", "sink", s.Name(), "doc_ref", docRef, "panic", r)
			err = common.NewAppError("SINK_PANIC", fmt.Sprintf("%s panicked: %v", s.Name(), r), common.ErrSinkDelivery)
		}
	}()
	cctx, cancel := common.WithTimeout(ctx, d.timeout)
	defer cancel()
	return s.Deliver(cctx, docRef, res)
}

func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		out[i] = s.Name()
	}
	return out
}

// healthChecker is implemented by sinks that hold a connection.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck checks every sink that supports it. Sinks without a check
// count as healthy.
func (d *Dispatcher) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, s := range d.sinks {
		hc, ok := s.(healthChecker)
		if !ok {
			continue
		}
		if err := hc.HealthCheck(ctx); err != nil {
			d.log.Warn("sink.health.failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns the first error.
func (d *Dispatcher) Close() error {
	var first error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			d.log.Warn("sink.close_error", "sink", s.Name(), "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func marshalRecord(docRef string, res llm.Result) ([]byte, error) {
	return json.Marshal(Record{BlobName: docRef, InvoiceDetails: res})
}
