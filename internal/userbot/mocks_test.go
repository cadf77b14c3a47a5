package userbot

import (
	"context"
	"sync"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type sinkCall struct {
	kind      string // text | file | edit
	userID    int64
	messageID int
	text      string
	path      string
}

type fakeSink struct {
	mu      sync.Mutex
	calls   []sinkCall
	sendErr error
}

func (s *fakeSink) SendText(ctx context.Context, userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.calls = append(s.calls, sinkCall{kind: "text", userID: userID, text: text})
	return nil
}

func (s *fakeSink) SendFile(ctx context.Context, userID int64, path, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{kind: "file", userID: userID, path: path, text: caption})
	return nil
}

func (s *fakeSink) EditMessage(ctx context.Context, userID int64, messageID int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{kind: "edit", userID: userID, messageID: messageID, text: text})
	return nil
}

func (s *fakeSink) byKind(kind string) []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkCall
	for _, c := range s.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeStore struct {
	mu       sync.Mutex
	requests map[string]*model.Request
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[string]*model.Request{}}
}

func (s *fakeStore) put(req *model.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
}

func (s *fakeStore) Create(ctx context.Context, req *model.Request) error {
	s.put(req)
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
	if req, ok := s.requests[requestID]; ok {
		req.Status = status
	}
	return nil
}

func (s *fakeStore) SetPrompt(ctx context.Context, requestID, prompt string) error  { return nil }
func (s *fakeStore) SetJobID(ctx context.Context, requestID, jobID string) error    { return nil }
func (s *fakeStore) SetProgress(ctx context.Context, requestID string, n int) error { return nil }

func (s *fakeStore) SetResult(ctx context.Context, requestID, summary, participantsFile, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		req.Summary = summary
		req.ParticipantsFile = participantsFile
		req.Error = errText
	}
	return nil
}

type fakeSession struct {
	mu      sync.Mutex
	markers map[[2]int64]int
}

func newFakeSession() *fakeSession {
	return &fakeSession{markers: map[[2]int64]int{}}
}

func (s *fakeSession) SetPendingPrompt(ctx context.Context, userID int64, requestID string) error {
	return nil
}
func (s *fakeSession) PendingPrompt(ctx context.Context, userID int64) string    { return "" }
func (s *fakeSession) ClearPendingPrompt(ctx context.Context, userID int64) error { return nil }

func (s *fakeSession) SetStatusMessage(ctx context.Context, userID, chatID int64, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[[2]int64{userID, chatID}] = messageID
	return nil
}

func (s *fakeSession) StatusMessage(ctx context.Context, userID, chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[[2]int64{userID, chatID}]
}

type fakeBus struct {
	ch chan repository.BusMessage
}

func newFakeBus() *fakeBus {
	return &fakeBus{ch: make(chan repository.BusMessage, 16)}
}

func (b *fakeBus) Publish(ctx context.Context, requestID string, ev model.StatusEvent) error {
	b.ch <- repository.BusMessage{RequestID: requestID, Event: ev}
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context) (<-chan repository.BusMessage, error) {
	return b.ch, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	results map[string]*model.JobResult
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{results: map[string]*model.JobResult{}}
}

func (q *fakeQueue) Enqueue(ctx context.Context, job repository.Job) (string, error) {
	return job.ID, nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*repository.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Finish(ctx context.Context, jobID string, failed bool) error { return nil }

func (q *fakeQueue) StoreResult(ctx context.Context, jobID string, res *model.JobResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[jobID] = res
	return nil
}

func (q *fakeQueue) FetchResult(ctx context.Context, jobID string) (*model.JobResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	res, ok := q.results[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return res, nil
}
