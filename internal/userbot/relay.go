package userbot

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
	"telegram-chat-summarizer/internal/domain/ports/repository"
)

// Relay listens to the status bus and mirrors transitions into the
// requester's chat. It edits the live status message for intermediate
// phases and delivers the stored result payload on terminal ones. It
// never writes request status; the worker owns that record.
type Relay struct {
	bus     repository.StatusBus
	store   repository.RequestStore
	session repository.SessionState
	queue   repository.JobQueue
	sink    adapter.DeliverySink
	sender  *ResultSender
	log     *zerolog.Logger
}

func NewRelay(
	bus repository.StatusBus,
	store repository.RequestStore,
	session repository.SessionState,
	queue repository.JobQueue,
	sink adapter.DeliverySink,
	log *zerolog.Logger,
) *Relay {
	return &Relay{
		bus:     bus,
		store:   store,
		session: session,
		queue:   queue,
		sink:    sink,
		sender:  NewResultSender(sink, log),
		log:     log,
	}
}

// Run consumes bus events until ctx is done. Events are handled one at
// a time; ordering within a request is preserved and a slow delivery
// only delays later edits, never reorders them.
func (r *Relay) Run(ctx context.Context) error {
	events, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	r.log.Info().Msg("notification relay started")

	for msg := range events {
		r.handle(ctx, msg)
	}
	r.log.Info().Msg("notification relay stopped")
	return nil
}

func (r *Relay) handle(ctx context.Context, msg repository.BusMessage) {
	log := r.log.With().Str("request_id", msg.RequestID).Str("status", string(msg.Event.Status)).Logger()

	req, err := r.store.Get(ctx, msg.RequestID)
	if err != nil {
		// The record may simply have expired; the event is then stale.
		log.Warn().Err(err).Msg("request lookup for event failed")
		return
	}

	if msg.Event.Status.Terminal() {
		r.deliverResult(ctx, req, msg, &log)
		return
	}

	r.editStatus(ctx, req, msg.Event, &log)
}

// editStatus updates the live status message. A missing message marker
// means the user's session moved on; the update is dropped, not sent as
// a fresh message, to avoid spamming the chat.
func (r *Relay) editStatus(ctx context.Context, req *model.Request, ev model.StatusEvent, log *zerolog.Logger) {
	messageID := r.session.StatusMessage(ctx, req.UserID, req.ChatID)
	if messageID == 0 {
		log.Debug().Msg("no status message marker, dropping update")
		return
	}
	if err := r.sink.EditMessage(ctx, req.UserID, messageID, RenderStatus(ev)); err != nil {
		log.Error().Err(err).Int("message_id", messageID).Msg("status edit failed")
	}
}

func (r *Relay) deliverResult(ctx context.Context, req *model.Request, msg repository.BusMessage, log *zerolog.Logger) {
	jobID := msg.Event.JobID
	if jobID == "" {
		jobID = req.JobID
	}
	if jobID == "" {
		log.Error().Msg("terminal event without job id")
		return
	}

	res, err := r.queue.FetchResult(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("result fetch failed")
		r.editStatus(ctx, req, msg.Event, log)
		return
	}

	// Copy the user-visible outcome onto the durable record so the
	// status API can serve it after the queue's result TTL passes.
	if err := r.store.SetResult(ctx, req.ID, res.Summary, res.ParticipantsFile, res.Error); err != nil {
		log.Error().Err(err).Msg("result persist failed")
	}

	r.editStatus(ctx, req, msg.Event, log)
	r.sender.Deliver(ctx, res)

	log.Info().Str("job_id", jobID).Str("result", string(res.Status)).Msg("result delivered")
}
