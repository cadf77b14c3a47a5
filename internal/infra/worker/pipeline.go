package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
	"telegram-chat-summarizer/internal/domain/ports/repository"
	"telegram-chat-summarizer/internal/infra/logging"
	"telegram-chat-summarizer/internal/infra/metrics"
	"telegram-chat-summarizer/internal/llm"
	"telegram-chat-summarizer/internal/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	progressEvery = 100
	extractAction = "extract"
	maxBusDetail  = 200
)

// PipelineConfig carries the knobs the state machine needs.
type PipelineConfig struct {
	Provider         string
	Model            string
	MaxHistoryTokens int
	OutputDir        string
	GlobalExtract    config.RateRule
	Retry            config.RetryConfig
}

// Pipeline drives one job from connection through history extraction,
// participant extraction, summarization, and result assembly. It is
// the only component that advances request status past QUEUED.
type Pipeline struct {
	chat       adapter.ChatClient
	summarizer adapter.Summarizer
	store      repository.RequestStore
	bus        repository.StatusBus
	limiter    repository.RateLimiter
	estimator  *llm.Estimator
	cfg        PipelineConfig
	log        *zerolog.Logger

	// sleep is injectable so flood-wait behavior is testable.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(
	chat adapter.ChatClient,
	summarizer adapter.Summarizer,
	store repository.RequestStore,
	bus repository.StatusBus,
	limiter repository.RateLimiter,
	cfg PipelineConfig,
	log *zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		chat:       chat,
		summarizer: summarizer,
		store:      store,
		bus:        bus,
		limiter:    limiter,
		estimator:  llm.NewEstimator(cfg.Model),
		cfg:        cfg,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Run executes the whole phase sequence under the retry policy: a
// retryable failure restarts from STARTED, not from the failed phase.
// Run never returns an error; failures become a structured payload so
// the queue layer always has a terminating, inspectable result.
// Terminal status is published separately via Complete, after the
// result has been persisted.
func (p *Pipeline) Run(ctx context.Context, job *repository.Job) *model.JobResult {
	defer logging.TraceDuration(p.log, "Pipeline.Run")()
	start := time.Now()
	attempts := 0

	var res *model.JobResult
	err := retry.Do(ctx, retry.Options{
		MaxTries: p.cfg.Retry.MaxTries,
		Delay:    p.cfg.Retry.Delay,
		Backoff:  p.cfg.Retry.Backoff,
		Jitter:   true,
		OnRetry: func(err error, attempt int, sleep time.Duration) {
			metrics.IncPipelineRetry()
			p.log.Warn().Err(err).
				Str("job_id", job.ID).
				Int("attempt", attempt).
				Dur("sleep", sleep).
				Msg("pipeline attempt failed, retrying from start")
		},
	}, func(ctx context.Context) error {
		attempts++
		r, err := p.runAttempt(ctx, job)
		if err != nil {
			return err
		}
		res = r
		return nil
	})

	if err != nil {
		return &model.JobResult{
			Status:     model.ResultFailure,
			Error:      err.Error(),
			Trace:      errorChain(err),
			RequestID:  job.RequestID,
			UserID:     job.UserID,
			ChatID:     job.ChatID,
			FinishedAt: time.Now(),
			Metrics: &model.ResultMetrics{
				DurationMillis: time.Since(start).Milliseconds(),
				Attempts:       attempts,
			},
		}
	}

	res.Metrics.DurationMillis = time.Since(start).Milliseconds()
	res.Metrics.Attempts = attempts
	return res
}

// Complete writes the terminal status and publishes the final event.
// Called by the processor after the result payload is stored, so a
// relay reacting to the event always finds the payload in place.
func (p *Pipeline) Complete(ctx context.Context, job *repository.Job, res *model.JobResult) {
	status := model.StatusSuccess
	detail := ""
	if res.Status == model.ResultFailure {
		status = model.StatusFailed
		detail = shortDetail(res.Error)
	}
	p.setStatus(ctx, job, status, detail, nil)
}

func (p *Pipeline) runAttempt(ctx context.Context, job *repository.Job) (*model.JobResult, error) {
	p.setStatus(ctx, job, model.StatusStarted, "", nil)

	if err := p.chat.Connect(ctx); err != nil {
		return nil, fmt.Errorf("platform connect: %w", err)
	}
	defer func() { _ = p.chat.Close() }()

	authorized, err := p.chat.IsAuthorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization check: %w", err)
	}
	if !authorized {
		return nil, domain.ErrNotAuthorized
	}

	// Global extraction cap. A denied check is handled like platform
	// flood control: announce the wait and sit it out.
	if allowed, info := p.limiter.CheckGlobal(ctx, extractAction, p.cfg.GlobalExtract.Limit, p.cfg.GlobalExtract.Period, true); !allowed {
		detail := fmt.Sprintf("Global rate limit: %s", info.ResetAfter.Round(time.Second))
		p.setStatus(ctx, job, model.StatusWaiting, detail, nil)
		if err := p.sleep(ctx, info.ResetAfter); err != nil {
			return nil, err
		}
	}

	p.setStatus(ctx, job, model.StatusExtractingHistory, "", nil)
	history, messageCount, err := p.extractHistory(ctx, job)
	if err != nil {
		return nil, err
	}

	participantsText, participantCount := p.extractParticipants(ctx, job)

	if history == "" {
		return nil, domain.ErrEmptyHistory
	}

	p.setStatus(ctx, job, model.StatusCallingLLM, "", nil)
	truncated := p.estimator.Truncate(history, p.cfg.MaxHistoryTokens)

	callStart := time.Now()
	summary, err := p.summarizer.Summarize(ctx, job.Prompt, truncated)
	latency := int(time.Since(callStart).Milliseconds())
	metrics.ObserveLLMCall(p.cfg.Provider, p.cfg.Model, latency, err == nil)
	if err != nil {
		return nil, fmt.Errorf("LLM summarization failed: %w", err)
	}

	// A fresh random suffix per attempt keeps retried runs from
	// colliding on the same output file.
	participantsFile := ""
	if participantsText != "" {
		name := fmt.Sprintf("participants_%s_%d_%s.txt",
			job.RequestID, job.ChatID, strings.ReplaceAll(uuid.NewString(), "-", ""))
		path := filepath.Join(p.cfg.OutputDir, name)
		if err := os.WriteFile(path, []byte(participantsText), 0o644); err != nil {
			p.log.Error().Err(err).Str("path", path).Msg("writing participants file failed")
		} else {
			participantsFile = path
		}
	}

	return &model.JobResult{
		Status:           model.ResultSuccess,
		Summary:          summary,
		ParticipantsFile: participantsFile,
		RequestID:        job.RequestID,
		UserID:           job.UserID,
		ChatID:           job.ChatID,
		FinishedAt:       time.Now(),
		Metrics: &model.ResultMetrics{
			MessageCount:     messageCount,
			ParticipantCount: participantCount,
		},
	}, nil
}

// extractHistory walks the chat oldest-to-newest. Flood control pauses
// the walk in place: the iterator cursor, not the buffer, decides where
// to resume, so no message is re-processed or skipped.
func (p *Pipeline) extractHistory(ctx context.Context, job *repository.Job) (string, int, error) {
	iter, err := p.chat.IterMessages(ctx, job.ChatID)
	if err != nil {
		return "", 0, fmt.Errorf("open history: %w", err)
	}

	var lines []string
	count := 0
	for {
		msg, err := iter.Next(ctx)
		if err != nil {
			var fw *domain.FloodWaitError
			if errors.As(err, &fw) {
				detail := fmt.Sprintf("Flood wait: %ds", fw.Seconds)
				p.setStatus(ctx, job, model.StatusWaiting, detail, nil)
				if err := p.sleep(ctx, time.Duration(fw.Seconds)*time.Second); err != nil {
					return "", 0, err
				}
				continue
			}
			return "", 0, fmt.Errorf("history iteration: %w", err)
		}
		if msg == nil {
			break
		}
		if msg.Text == "" {
			continue
		}
		if cleaned := CleanMessageText(msg.Text); cleaned != "" {
			lines = append(lines, cleaned)
		}
		count++
		if count%progressEvery == 0 {
			n := count
			p.setStatus(ctx, job, model.StatusProgress, fmt.Sprintf("%d messages", n), &n)
		}
	}
	return strings.Join(lines, "\n"), count, nil
}

// extractParticipants is best-effort: a chat without a member list, or
// a failed enumeration, must not fail the job.
func (p *Pipeline) extractParticipants(ctx context.Context, job *repository.Job) (string, int) {
	has, err := p.chat.HasParticipants(ctx, job.ChatID)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", job.ChatID).Msg("participant lookup failed")
		return "", 0
	}
	if !has {
		return "", 0
	}

	p.setStatus(ctx, job, model.StatusExtractingParticipants, "", nil)
	parts, err := p.chat.Participants(ctx, job.ChatID)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", job.ChatID).Msg("participant extraction failed")
		return "", 0
	}

	var rows []string
	for _, u := range parts {
		row := fmt.Sprintf("%d\t%s %s @%s", u.ID, u.FirstName, u.LastName, u.Username)
		rows = append(rows, strings.TrimSpace(row))
	}
	return strings.Join(rows, "\n"), len(rows)
}

// setStatus mutates the durable record and broadcasts the transition.
// A failed store write is logged but does not abort the phase in
// progress; a failed publish only delays visibility, the store record
// stays authoritative.
func (p *Pipeline) setStatus(ctx context.Context, job *repository.Job, status model.Status, detail string, progress *int) {
	metrics.IncPhase(string(status))

	if err := p.store.UpdateStatus(ctx, job.RequestID, status); err != nil {
		p.log.Error().Err(err).Str("request_id", job.RequestID).Str("status", string(status)).Msg("status write failed")
	}
	if progress != nil {
		if err := p.store.SetProgress(ctx, job.RequestID, *progress); err != nil {
			p.log.Error().Err(err).Str("request_id", job.RequestID).Msg("progress write failed")
		}
	}

	ev := model.StatusEvent{
		JobID:     job.ID,
		ChatID:    job.ChatID,
		Status:    status,
		Detail:    detail,
		Progress:  progress,
		Timestamp: time.Now().Unix(),
	}
	if err := p.bus.Publish(ctx, job.RequestID, ev); err != nil {
		p.log.Error().Err(err).Str("request_id", job.RequestID).Msg("status publish failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shortDetail trims a failure message for the bus; the full text lives
// only in the durable result payload.
func shortDetail(msg string) string {
	if len(msg) <= maxBusDetail {
		return msg
	}
	return msg[:maxBusDetail] + "…"
}

func errorChain(err error) string {
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, " <- ")
}
