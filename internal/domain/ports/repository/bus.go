package repository

import (
	"context"

	"telegram-chat-summarizer/internal/domain/model"
)

// BusMessage is one decoded status event with the request id recovered
// from the channel name.
type BusMessage struct {
	RequestID string
	Event     model.StatusEvent
}

// StatusBus broadcasts request-status transitions. Delivery is
// at-most-once and best-effort: a subscriber that is offline when an
// event is published misses it permanently, and the durable request
// record stays the only guaranteed source of truth.
type StatusBus interface {
	Publish(ctx context.Context, requestID string, ev model.StatusEvent) error

	// Subscribe returns a channel of decoded events across all request
	// channels. Malformed payloads are logged and skipped. The channel
	// closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan BusMessage, error)
}
