package repository

import (
	"context"
	"time"

	"telegram-chat-summarizer/internal/domain/model"
)

// Job is one unit of background work pulled by a worker.
type Job struct {
	ID         string
	RequestID  string
	UserID     int64
	ChatID     int64
	Prompt     string
	EnqueuedAt time.Time
}

// JobQueue is the shared work queue between dispatcher and workers.
type JobQueue interface {
	// Enqueue adds job under its deterministic id. Re-enqueueing an id
	// that is still queued or running is a no-op returning the existing
	// id, so one logical request never runs twice concurrently.
	Enqueue(ctx context.Context, job Job) (string, error)

	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (*Job, error)

	// Finish records the job's terminal state and releases its dedupe
	// guard after a short grace period.
	Finish(ctx context.Context, jobID string, failed bool) error

	// StoreResult persists the run's payload under the queue's own
	// result TTL, separate from the request record's TTL.
	StoreResult(ctx context.Context, jobID string, res *model.JobResult) error

	// FetchResult is the relay's consume-once read of a stored payload.
	FetchResult(ctx context.Context, jobID string) (*model.JobResult, error)
}
