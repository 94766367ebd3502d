package sink

import (
	"context"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

// EventGridSink publishes an Invoice.Processed CloudEvent per result.
type EventGridSink struct {
	client cloudevents.Client
	log    *slog.Logger
}

func NewEventGridSink(endpoint, key string, logger *slog.Logger) (*EventGridSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p, err := cloudevents.NewHTTP(
		cloudevents.WithTarget(endpoint),
		cloudevents.WithHeader("aeg-sas-key", key),
	)
	if err != nil {
		return nil, fmt.Errorf("eventgrid protocol: %w", err)
	}
	c, err := cloudevents.NewClient(p, cloudevents.WithUUIDs(), cloudevents.WithTimeNow())
	if err != nil {
		return nil, fmt.Errorf("eventgrid client: %w", err)
	}
	return &EventGridSink{client: c, log: logger}, nil
}

func (s *EventGridSink) Name() string { return constants.SinkEventGrid }

func (s *EventGridSink) Deliver(ctx context.Context, docRef string, res llm.Result) error {
	e := cloudevents.NewEvent()
	e.SetType(constants.EventTypeInvoiceProcessed)
	e.SetSource(constants.EventSource)
	e.SetSubject("Invoice/" + docRef)
	e.SetExtension("dataversion", constants.EventDataVersion)
	if err := e.SetData(cloudevents.ApplicationJSON, res); err != nil {
		return fmt.Errorf("%w: encode event: %v", common.ErrSinkDelivery, err)
	}

	if result := s.client.Send(ctx, e); !cloudevents.IsACK(result) {
		return fmt.Errorf("%w: eventgrid send: %v", common.ErrSinkDelivery, result)
	}
	s.log.Debug("sink.eventgrid.sent", "event_id", e.ID(), "subject", e.Subject())
	return nil
}

func (s *EventGridSink) Close() error { return nil }
