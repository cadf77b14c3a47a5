package repository

import (
	"context"

	"telegram-chat-summarizer/internal/domain/model"
)

// RequestStore is the durable owner of request state. Every write
// re-applies the record TTL (sliding expiry). Get on an unknown or
// expired id returns domain.ErrNotFound; callers treat absence as "no
// such request", not as failure. Field writes are atomic per call but
// cross-field sequences are not transactional.
type RequestStore interface {
	Create(ctx context.Context, req *model.Request) error
	Get(ctx context.Context, requestID string) (*model.Request, error)

	// UpdateStatus refuses writes after a terminal status with
	// domain.ErrTerminalRequest.
	UpdateStatus(ctx context.Context, requestID string, status model.Status) error

	SetPrompt(ctx context.Context, requestID, prompt string) error
	SetJobID(ctx context.Context, requestID, jobID string) error
	SetProgress(ctx context.Context, requestID string, processed int) error

	// SetResult persists the user-visible outcome fields so the status
	// API can serve them after the queue's result record expires.
	SetResult(ctx context.Context, requestID, summary, participantsFile, errText string) error
}

// SessionState holds the short-lived per-user markers: the request id
// awaiting a free-text prompt and the live status message per chat.
// Both expire on their own; readers treat absence as "no pending state".
type SessionState interface {
	SetPendingPrompt(ctx context.Context, userID int64, requestID string) error
	// PendingPrompt returns "" when no marker exists or the store is
	// unreachable (best-effort default, error logged by implementations).
	PendingPrompt(ctx context.Context, userID int64) string
	ClearPendingPrompt(ctx context.Context, userID int64) error

	SetStatusMessage(ctx context.Context, userID, chatID int64, messageID int) error
	// StatusMessage returns 0 when no marker exists.
	StatusMessage(ctx context.Context, userID, chatID int64) int
}
