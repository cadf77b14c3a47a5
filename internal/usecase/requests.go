package usecase

import (
	"context"
	"strings"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// minPromptLen is the shortest free-text prompt we accept; anything
// shorter is almost certainly a stray tap or a command typo.
const minPromptLen = 3

// RequestFlow runs the conversational side of a request: create the
// record, hold the pending-prompt marker, and hand off to the
// dispatcher once the user supplies a prompt.
type RequestFlow struct {
	store      repository.RequestStore
	session    repository.SessionState
	limiter    repository.RateLimiter
	dispatcher *Dispatcher
	rule       config.RateRule
	log        *zerolog.Logger
}

func NewRequestFlow(
	store repository.RequestStore,
	session repository.SessionState,
	limiter repository.RateLimiter,
	dispatcher *Dispatcher,
	rule config.RateRule,
	log *zerolog.Logger,
) *RequestFlow {
	return &RequestFlow{
		store:      store,
		session:    session,
		limiter:    limiter,
		dispatcher: dispatcher,
		rule:       rule,
		log:        log,
	}
}

// Begin creates a PENDING_PROMPT request for the target chat and marks
// the user as awaiting a prompt. The per-user admission check happens
// here, before any state is written.
func (f *RequestFlow) Begin(ctx context.Context, userID, chatID int64) (string, error) {
	if allowed, info := f.limiter.Check(ctx, userID, "request", f.rule.Limit, f.rule.Period, true); !allowed {
		return "", &ErrRateLimited{Info: info}
	}

	requestID := strings.ToLower(ulid.Make().String())
	req := &model.Request{
		ID:     requestID,
		UserID: userID,
		ChatID: chatID,
		Status: model.StatusPendingPrompt,
	}
	if err := f.store.Create(ctx, req); err != nil {
		return "", err
	}
	if err := f.session.SetPendingPrompt(ctx, userID, requestID); err != nil {
		return "", err
	}

	f.log.Info().Str("request_id", requestID).Int64("user_id", userID).Int64("chat_id", chatID).Msg("request created")
	return requestID, nil
}

// Pending returns the request id the user is currently expected to
// supply a prompt for, or "" when there is none.
func (f *RequestFlow) Pending(ctx context.Context, userID int64) string {
	return f.session.PendingPrompt(ctx, userID)
}

// Cancel drops the pending-prompt marker. The request record itself is
// left to expire; it never reached the queue.
func (f *RequestFlow) Cancel(ctx context.Context, userID int64) (bool, error) {
	requestID := f.session.PendingPrompt(ctx, userID)
	if requestID == "" {
		return false, nil
	}
	if err := f.session.ClearPendingPrompt(ctx, userID); err != nil {
		return false, err
	}
	f.log.Info().Str("request_id", requestID).Int64("user_id", userID).Msg("pending request cancelled")
	return true, nil
}

// SubmitPrompt attaches the prompt to the pending request and
// dispatches it. The marker is cleared before dispatch so a retry that
// races a duplicate message cannot enqueue twice; the queue's dedupe
// guard backstops the rest.
func (f *RequestFlow) SubmitPrompt(ctx context.Context, userID int64, prompt string) (string, string, error) {
	prompt = strings.TrimSpace(prompt)
	if len([]rune(prompt)) < minPromptLen {
		return "", "", domain.ErrInvalidArgument
	}

	requestID := f.session.PendingPrompt(ctx, userID)
	if requestID == "" {
		return "", "", domain.ErrNotFound
	}

	if err := f.store.SetPrompt(ctx, requestID, prompt); err != nil {
		return "", "", err
	}
	if err := f.session.ClearPendingPrompt(ctx, userID); err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("clearing pending marker failed")
	}

	jobID, err := f.dispatcher.Dispatch(ctx, requestID)
	if err != nil {
		return requestID, "", err
	}
	return requestID, jobID, nil
}
