package userbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
	"telegram-chat-summarizer/internal/domain/ports/repository"
	"telegram-chat-summarizer/internal/usecase"
)

const helpText = `Send me a chat to summarize: forward any message from it, or send its @username, t.me link, or numeric id.
I will then ask for your summarization prompt.

/cancel — drop the request you are composing`

// StatusMessenger sends the initial live-status message and reports its
// id so later transitions can edit it in place.
type StatusMessenger interface {
	SendStatusMessage(ctx context.Context, userID int64, text string) (int, error)
}

// ChatResolver maps a user-supplied chat reference to a chat id.
type ChatResolver interface {
	ResolveChat(ctx context.Context, ref string) (int64, error)
}

// Handler reacts to incoming bot messages: it runs the two-step
// request conversation (pick a chat, then supply a prompt) and hands
// completed requests to the dispatcher through the request flow.
type Handler struct {
	flow     *usecase.RequestFlow
	store    repository.RequestStore
	session  repository.SessionState
	sink     adapter.DeliverySink
	status   StatusMessenger
	resolver ChatResolver
	log      *zerolog.Logger
}

func NewHandler(
	flow *usecase.RequestFlow,
	store repository.RequestStore,
	session repository.SessionState,
	sink adapter.DeliverySink,
	status StatusMessenger,
	resolver ChatResolver,
	log *zerolog.Logger,
) *Handler {
	return &Handler{
		flow:     flow,
		store:    store,
		session:  session,
		sink:     sink,
		status:   status,
		resolver: resolver,
		log:      log,
	}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	userID := msg.From.ID

	switch msg.Command() {
	case "start", "help":
		h.reply(ctx, userID, helpText)
		return
	case "cancel":
		cancelled, err := h.flow.Cancel(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Int64("user_id", userID).Msg("cancel failed")
			h.reply(ctx, userID, "Something went wrong, please try again.")
			return
		}
		if cancelled {
			h.reply(ctx, userID, "Request cancelled.")
		} else {
			h.reply(ctx, userID, "Nothing to cancel.")
		}
		return
	}

	if h.flow.Pending(ctx, userID) != "" {
		h.onPrompt(ctx, userID, msg.Text)
		return
	}
	h.onNewTarget(ctx, userID, msg)
}

// onNewTarget resolves the chat the user wants summarized and opens a
// pending request for it.
func (h *Handler) onNewTarget(ctx context.Context, userID int64, msg *tgbotapi.Message) {
	var chatID int64
	if msg.ForwardFromChat != nil {
		chatID = msg.ForwardFromChat.ID
	} else {
		ref := strings.TrimSpace(msg.Text)
		if ref == "" {
			h.reply(ctx, userID, helpText)
			return
		}
		id, err := h.resolver.ResolveChat(ctx, ref)
		if err != nil {
			h.log.Debug().Err(err).Int64("user_id", userID).Msg("chat resolution failed")
			h.reply(ctx, userID, "I could not find that chat. Forward a message from it, or send its @username or id.")
			return
		}
		chatID = id
	}

	requestID, err := h.flow.Begin(ctx, userID, chatID)
	if err != nil {
		var rl *usecase.ErrRateLimited
		if errors.As(err, &rl) {
			h.reply(ctx, userID, rateLimitedText(rl))
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("request creation failed")
		h.reply(ctx, userID, "Something went wrong, please try again.")
		return
	}

	h.log.Info().Str("request_id", requestID).Int64("user_id", userID).Msg("awaiting prompt")
	h.reply(ctx, userID, "Got it. Now send me your summarization prompt (or /cancel).")
}

// onPrompt finishes the conversation: attach the prompt, dispatch, and
// pin the live status message.
func (h *Handler) onPrompt(ctx context.Context, userID int64, text string) {
	requestID, jobID, err := h.flow.SubmitPrompt(ctx, userID, text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			h.reply(ctx, userID, "The prompt must be at least 3 characters. Try again, or /cancel.")
		case errors.Is(err, domain.ErrNotFound):
			h.reply(ctx, userID, "That request has expired. Send me the chat again to start over.")
		default:
			var rl *usecase.ErrRateLimited
			if errors.As(err, &rl) {
				h.reply(ctx, userID, rateLimitedText(rl))
				return
			}
			h.log.Error().Err(err).Str("request_id", requestID).Msg("dispatch failed")
			h.reply(ctx, userID, "Could not queue your request, please try again later.")
		}
		return
	}

	req, err := h.store.Get(ctx, requestID)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("request readback failed")
		return
	}

	ev := model.StatusEvent{JobID: jobID, ChatID: req.ChatID, Status: model.StatusQueued, Timestamp: time.Now().Unix()}
	messageID, err := h.status.SendStatusMessage(ctx, userID, RenderStatus(ev))
	if err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("status message send failed")
		return
	}
	if err := h.session.SetStatusMessage(ctx, userID, req.ChatID, messageID); err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("status message marker write failed")
	}
}

func (h *Handler) reply(ctx context.Context, userID int64, text string) {
	if err := h.sink.SendText(ctx, userID, text); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("reply send failed")
	}
}

func rateLimitedText(rl *usecase.ErrRateLimited) string {
	return fmt.Sprintf("You are sending requests too fast. Try again in %s.",
		rl.Info.ResetAfter.Round(time.Second))
}
