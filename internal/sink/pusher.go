package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pusher/pusher-http-go/v5"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	Channel string
	// Host overrides api-{cluster}.pusher.com. A set Host is dialled over plain http.
	Host    string
	Timeout time.Duration
}

// PusherSink triggers an event on a Pusher channel.
type PusherSink struct {
	channel string
	client  *pusher.Client
}

func NewPusherSink(cfg PusherConfig) *PusherSink {
	if cfg.Channel == "" {
		cfg.Channel = "invoice-channel"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PusherSink{
		channel: cfg.Channel,
		client: &pusher.Client{
			AppID:      cfg.AppID,
			Key:        cfg.Key,
			Secret:     cfg.Secret,
			Cluster:    cfg.Cluster,
			Host:       cfg.Host,
			Secure:     cfg.Host == "",
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		},
	}
}

func (s *PusherSink) Name() string { return constants.SinkPusher }

// Deliver is bounded by the client timeout; the SDK does not take a context.
func (s *PusherSink) Deliver(ctx context.Context, docRef string, res llm.Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: pusher: %v", common.ErrSinkDelivery, err)
	}
	rec := Record{BlobName: docRef, InvoiceDetails: res}
	if err := s.client.Trigger(s.channel, constants.RealtimeEventName, rec); err != nil {
		return fmt.Errorf("%w: pusher: %v", common.ErrSinkDelivery, err)
	}
	return nil
}

func (s *PusherSink) Close() error { return nil }
