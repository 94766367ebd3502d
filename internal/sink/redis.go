package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

// RedisSink publishes the realtime payload on "<channel>:invoice-processed".
// The payload is exactly the Record; the event name lives in the channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	owned   bool
}

// NewRedisSink publishes through client; the sink closes it only when owned.
func NewRedisSink(client *redis.Client, channel string, owned bool) *RedisSink {
	return &RedisSink{client: client, channel: channel + ":" + constants.RealtimeEventName, owned: owned}
}

func (s *RedisSink) Name() string { return constants.SinkRedis }

func (s *RedisSink) Deliver(ctx context.Context, docRef string, res llm.Result) error {
	payload, err := marshalRecord(docRef, res)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrSinkDelivery, err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish %s: %v", common.ErrSinkDelivery, s.channel, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
