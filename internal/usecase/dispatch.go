package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// ErrRateLimited reports a denied admission check along with the
// window info callers need to phrase a useful message.
type ErrRateLimited struct {
	Info repository.RateInfo
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited: %s/%s, retry in %s",
		e.Info.Subject, e.Info.Action, e.Info.ResetAfter.Round(time.Second))
}

// JobID builds the deterministic job identifier. Re-submitting the
// same logical request maps onto the same id, and the queue's dedupe
// guard keeps a second concurrent run from starting.
func JobID(requestID string, chatID int64) string {
	return fmt.Sprintf("extract:%s:%d", requestID, chatID)
}

// Dispatcher turns a validated request into a background job.
type Dispatcher struct {
	store   repository.RequestStore
	queue   repository.JobQueue
	limiter repository.RateLimiter
	rule    config.RateRule
	log     *zerolog.Logger
}

func NewDispatcher(
	store repository.RequestStore,
	queue repository.JobQueue,
	limiter repository.RateLimiter,
	rule config.RateRule,
	log *zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{store: store, queue: queue, limiter: limiter, rule: rule, log: log}
}

// Dispatch enqueues the request's job and records the handoff. An
// enqueue failure is surfaced to the caller; the request is never left
// silently stuck in PENDING_PROMPT.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string) (string, error) {
	req, err := d.store.Get(ctx, requestID)
	if err != nil {
		return "", err
	}

	if allowed, info := d.limiter.Check(ctx, req.UserID, "extract", d.rule.Limit, d.rule.Period, true); !allowed {
		return "", &ErrRateLimited{Info: info}
	}

	job := repository.Job{
		ID:         JobID(requestID, req.ChatID),
		RequestID:  requestID,
		UserID:     req.UserID,
		ChatID:     req.ChatID,
		Prompt:     req.CustomPrompt,
		EnqueuedAt: time.Now(),
	}
	jobID, err := d.queue.Enqueue(ctx, job)
	if err != nil {
		return "", fmt.Errorf("enqueue request %s: %w", requestID, err)
	}

	if err := d.store.SetJobID(ctx, requestID, jobID); err != nil {
		d.log.Error().Err(err).Str("request_id", requestID).Msg("recording job id failed")
	}
	if err := d.store.UpdateStatus(ctx, requestID, model.StatusQueued); err != nil {
		d.log.Error().Err(err).Str("request_id", requestID).Msg("queued status write failed")
	}

	d.log.Info().Str("request_id", requestID).Str("job_id", jobID).Int64("chat_id", req.ChatID).Msg("job enqueued")
	return jobID, nil
}
