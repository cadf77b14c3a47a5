package worker

import (
	"context"
	"errors"
	"time"

	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"
	"telegram-chat-summarizer/internal/infra/logging"
	"telegram-chat-summarizer/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Processor pulls jobs off the shared queue and hands them to the
// pool. One job runs its phases sequentially; concurrency exists only
// across jobs.
type Processor struct {
	queue    repository.JobQueue
	pipeline *Pipeline
	log      *zerolog.Logger
}

func NewProcessor(queue repository.JobQueue, pipeline *Pipeline, log *zerolog.Logger) *Processor {
	return &Processor{queue: queue, pipeline: pipeline, log: log}
}

// Start runs the consume loop until ctx is done.
// This should be run in a goroutine.
func (p *Processor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("extraction processor started")
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.log.Info().Msg("extraction processor stopping")
				return
			}
			p.log.Error().Err(err).Msg("dequeue failed")
			time.Sleep(time.Second)
			continue
		}

		j := job
		if err := pool.SubmitWait(ctx, func(ctx context.Context) error {
			p.process(ctx, j)
			return nil
		}); err != nil {
			p.log.Info().Msg("extraction processor stopping")
			return
		}
	}
}

func (p *Processor) process(ctx context.Context, job *repository.Job) {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithRequestID(ctx, job.RequestID)
	ctx = logging.WithUserID(ctx, job.UserID)
	log := logging.With(ctx, p.log)
	log.Info().Int64("chat_id", job.ChatID).Msg("processing extraction job")
	start := time.Now()

	res := p.pipeline.Run(ctx, job)

	// Persist the payload before announcing the terminal state, so a
	// relay reacting to the event never races an absent result.
	if err := p.queue.StoreResult(ctx, job.ID, res); err != nil {
		log.Error().Err(err).Msg("storing job result failed")
	}
	p.pipeline.Complete(ctx, job, res)

	failed := res.Status == model.ResultFailure
	if err := p.queue.Finish(ctx, job.ID, failed); err != nil {
		log.Error().Err(err).Msg("finishing job failed")
	}

	metrics.IncJob(string(res.Status))
	log.Info().
		Str("status", string(res.Status)).
		Dur("duration", time.Since(start)).
		Msg("extraction job finished")
}
