package redis

import (
	"context"
	"encoding/json"
	"strings"

	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"
	"telegram-chat-summarizer/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const statusChannelPrefix = "request_status:"

var _ repository.StatusBus = (*StatusBus)(nil)

// StatusBus broadcasts status transitions over pub/sub channels
// namespaced by request id. Delivery is at-most-once; the durable
// request record remains the source of truth.
type StatusBus struct {
	client Client
	log    *zerolog.Logger
}

func NewStatusBus(client Client, log *zerolog.Logger) *StatusBus {
	return &StatusBus{client: client, log: log}
}

func (b *StatusBus) Publish(ctx context.Context, requestID string, ev model.StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, statusChannelPrefix+requestID, string(payload)); err != nil {
		metrics.IncBusPublishFailure()
		return err
	}
	return nil
}

func (b *StatusBus) Subscribe(ctx context.Context) (<-chan repository.BusMessage, error) {
	raw, stop := b.client.PSubscribe(ctx, statusChannelPrefix+"*")

	out := make(chan repository.BusMessage, 64)
	go func() {
		defer close(out)
		defer func() { _ = stop() }()
		for msg := range raw {
			var ev model.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Error().Err(err).Str("channel", msg.Channel).Msg("malformed status payload, skipping")
				continue
			}
			requestID := strings.TrimPrefix(msg.Channel, statusChannelPrefix)
			select {
			case out <- repository.BusMessage{RequestID: requestID, Event: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
