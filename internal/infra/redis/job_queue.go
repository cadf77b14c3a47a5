package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"
)

const (
	jobStateQueued   = "queued"
	jobStateStarted  = "started"
	jobStateFinished = "finished"
	jobStateFailed   = "failed"

	// Job metadata outlives the run only long enough for stragglers to
	// inspect it; the dedupe guard dies with it.
	jobMetaTTL     = 24 * time.Hour
	finishedJobTTL = 5 * time.Minute

	dequeuePoll = time.Second
)

var _ repository.JobQueue = (*JobQueue)(nil)

// JobQueue is a Redis-list work queue. The job-id hash doubles as the
// duplicate-enqueue guard: HSETNX either claims the id or proves another
// enqueue got there first.
type JobQueue struct {
	client    Client
	name      string
	resultTTL time.Duration
}

func NewJobQueue(client Client, name string, resultTTL time.Duration) *JobQueue {
	return &JobQueue{client: client, name: name, resultTTL: resultTTL}
}

func (q *JobQueue) queueKey() string      { return "queue:" + q.name }
func (q *JobQueue) processingKey() string { return "queue:" + q.name + ":processing" }

func jobKey(id string) string    { return "job:" + id }
func resultKey(id string) string { return "job:" + id + ":result" }

func (q *JobQueue) Enqueue(ctx context.Context, job repository.Job) (string, error) {
	created, err := q.client.HSetNX(ctx, jobKey(job.ID), "state", jobStateQueued)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	if !created {
		// Same logical request already queued or running; hand back the
		// existing id instead of starting a second run.
		return job.ID, nil
	}

	meta := map[string]string{
		"request_id":  job.RequestID,
		"user_id":     strconv.FormatInt(job.UserID, 10),
		"chat_id":     strconv.FormatInt(job.ChatID, 10),
		"prompt":      job.Prompt,
		"enqueued_at": job.EnqueuedAt.UTC().Format(time.RFC3339),
	}
	if err := q.client.HSet(ctx, jobKey(job.ID), meta); err != nil {
		_ = q.client.Del(ctx, jobKey(job.ID))
		return "", fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	_ = q.client.Expire(ctx, jobKey(job.ID), jobMetaTTL)

	if err := q.client.LPush(ctx, q.queueKey(), job.ID); err != nil {
		_ = q.client.Del(ctx, jobKey(job.ID))
		return "", fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return job.ID, nil
}

func (q *JobQueue) Dequeue(ctx context.Context) (*repository.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := q.client.BRPopLPush(ctx, q.queueKey(), q.processingKey(), dequeuePoll)
		if err != nil {
			if errors.Is(err, ErrNil) {
				continue // poll timeout, check ctx and block again
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		fields, err := q.client.HGetAll(ctx, jobKey(id))
		if err != nil || len(fields) == 0 {
			// Metadata expired or unreadable; drop the orphaned entry.
			_ = q.client.LRem(ctx, q.processingKey(), 1, id)
			continue
		}
		_ = q.client.HSet(ctx, jobKey(id), map[string]string{"state": jobStateStarted})

		job := &repository.Job{ID: id, RequestID: fields["request_id"], Prompt: fields["prompt"]}
		job.UserID, _ = strconv.ParseInt(fields["user_id"], 10, 64)
		job.ChatID, _ = strconv.ParseInt(fields["chat_id"], 10, 64)
		if t, err := time.Parse(time.RFC3339, fields["enqueued_at"]); err == nil {
			job.EnqueuedAt = t
		}
		return job, nil
	}
}

func (q *JobQueue) Finish(ctx context.Context, jobID string, failed bool) error {
	state := jobStateFinished
	if failed {
		state = jobStateFailed
	}
	if err := q.client.HSet(ctx, jobKey(jobID), map[string]string{"state": state}); err != nil {
		return err
	}
	// Short grace TTL instead of DEL: the relay may still look at the
	// job while its result is in flight, and expiry releases the dedupe
	// guard for a future re-run of the same request.
	_ = q.client.Expire(ctx, jobKey(jobID), finishedJobTTL)
	return q.client.LRem(ctx, q.processingKey(), 1, jobID)
}

func (q *JobQueue) StoreResult(ctx context.Context, jobID string, res *model.JobResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return q.client.SetEx(ctx, resultKey(jobID), string(payload), q.resultTTL)
}

func (q *JobQueue) FetchResult(ctx context.Context, jobID string) (*model.JobResult, error) {
	payload, err := q.client.Get(ctx, resultKey(jobID))
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var res model.JobResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
