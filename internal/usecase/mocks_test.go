package usecase

import (
	"context"
	"sync"
	"time"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeStore struct {
	mu       sync.Mutex
	requests map[string]*model.Request
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[string]*model.Request{}}
}

func (s *fakeStore) Create(ctx context.Context, req *model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *fakeStore) Get(ctx context.Context, requestID string) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, requestID string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status.Terminal() {
		return domain.ErrTerminalRequest
	}
	req.Status = status
	return nil
}

func (s *fakeStore) SetPrompt(ctx context.Context, requestID, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		req.CustomPrompt = prompt
	}
	return nil
}

func (s *fakeStore) SetJobID(ctx context.Context, requestID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		req.JobID = jobID
	}
	return nil
}

func (s *fakeStore) SetProgress(ctx context.Context, requestID string, processed int) error {
	return nil
}

func (s *fakeStore) SetResult(ctx context.Context, requestID, summary, participantsFile, errText string) error {
	return nil
}

type fakeSession struct {
	mu      sync.Mutex
	pending map[int64]string
}

func newFakeSession() *fakeSession {
	return &fakeSession{pending: map[int64]string{}}
}

func (s *fakeSession) SetPendingPrompt(ctx context.Context, userID int64, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = requestID
	return nil
}

func (s *fakeSession) PendingPrompt(ctx context.Context, userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[userID]
}

func (s *fakeSession) ClearPendingPrompt(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
	return nil
}

func (s *fakeSession) SetStatusMessage(ctx context.Context, userID, chatID int64, messageID int) error {
	return nil
}

func (s *fakeSession) StatusMessage(ctx context.Context, userID, chatID int64) int {
	return 0
}

type fakeLimiter struct {
	mu      sync.Mutex
	deny    bool
	actions []string
}

func (l *fakeLimiter) Check(ctx context.Context, userID int64, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
	if l.deny {
		return false, repository.RateInfo{Limit: limit, ResetAfter: 30 * time.Minute, Action: action}
	}
	return true, repository.RateInfo{Allowed: true, Limit: limit}
}

func (l *fakeLimiter) CheckGlobal(ctx context.Context, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	return true, repository.RateInfo{Allowed: true, Limit: limit}
}

func (l *fakeLimiter) Windows(ctx context.Context, userID int64) (map[string]repository.WindowInfo, error) {
	return map[string]repository.WindowInfo{}, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	jobs       map[string]repository.Job
	order      []string
	enqueueErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: map[string]repository.Job{}}
}

func (q *fakeQueue) Enqueue(ctx context.Context, job repository.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	if _, exists := q.jobs[job.ID]; exists {
		return job.ID, nil
	}
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	return job.ID, nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*repository.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Finish(ctx context.Context, jobID string, failed bool) error { return nil }

func (q *fakeQueue) StoreResult(ctx context.Context, jobID string, res *model.JobResult) error {
	return nil
}

func (q *fakeQueue) FetchResult(ctx context.Context, jobID string) (*model.JobResult, error) {
	return nil, domain.ErrNotFound
}
