package worker

import (
	"context"
	"sync"
	"time"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// trace records cross-component call ordering for assertions.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(call string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// ---- chat client fake ----

type fakeChat struct {
	messages []adapter.ChatMessage
	// floodBefore maps a message index to a one-shot flood-wait, raised
	// before that message is served.
	floodBefore map[int]int

	hasParticipants bool
	participants    []adapter.Participant

	authorized bool
	connectErr error

	iterCount int
}

func newFakeChat(msgs []adapter.ChatMessage) *fakeChat {
	return &fakeChat{messages: msgs, authorized: true}
}

func (c *fakeChat) Connect(ctx context.Context) error { return c.connectErr }

func (c *fakeChat) IsAuthorized(ctx context.Context) (bool, error) { return c.authorized, nil }

func (c *fakeChat) IterMessages(ctx context.Context, chatID int64) (adapter.MessageIter, error) {
	c.iterCount++
	flood := make(map[int]int, len(c.floodBefore))
	for k, v := range c.floodBefore {
		flood[k] = v
	}
	return &fakeIter{msgs: c.messages, floodBefore: flood}, nil
}

func (c *fakeChat) HasParticipants(ctx context.Context, chatID int64) (bool, error) {
	return c.hasParticipants, nil
}

func (c *fakeChat) Participants(ctx context.Context, chatID int64) ([]adapter.Participant, error) {
	return c.participants, nil
}

func (c *fakeChat) Close() error { return nil }

type fakeIter struct {
	msgs        []adapter.ChatMessage
	floodBefore map[int]int
	cursor      int
}

func (it *fakeIter) Next(ctx context.Context) (*adapter.ChatMessage, error) {
	if secs, ok := it.floodBefore[it.cursor]; ok {
		delete(it.floodBefore, it.cursor)
		return nil, &domain.FloodWaitError{Seconds: secs}
	}
	if it.cursor >= len(it.msgs) {
		return nil, nil
	}
	msg := it.msgs[it.cursor]
	it.cursor++
	return &msg, nil
}

// ---- summarizer fake ----

type fakeSummarizer struct {
	summary string
	err     error

	mu        sync.Mutex
	calls     int
	histories []string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, prompt, history string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.histories = append(s.histories, history)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func (s *fakeSummarizer) Model() string { return "fake" }

// ---- request store fake ----

type fakeStore struct {
	mu       sync.Mutex
	requests map[string]*model.Request
	statuses []model.Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[string]*model.Request{}}
}

func (s *fakeStore) put(req *model.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
}

func (s *fakeStore) statusLog() []model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Status(nil), s.statuses...)
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
	req, ok := s.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status.Terminal() {
		return domain.ErrTerminalRequest
	}
	req.Status = status
	s.statuses = append(s.statuses, status)
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		n := processed
		req.Progress = &n
	}
	return nil
}

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

// ---- status bus fake ----

type fakeBus struct {
	mu     sync.Mutex
	events []model.StatusEvent
	trace  *trace
}

func (b *fakeBus) Publish(ctx context.Context, requestID string, ev model.StatusEvent) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	if b.trace != nil && ev.Status.Terminal() {
		b.trace.add("publish_terminal")
	}
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context) (<-chan repository.BusMessage, error) {
	ch := make(chan repository.BusMessage)
	close(ch)
	return ch, nil
}

func (b *fakeBus) published() []model.StatusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.StatusEvent(nil), b.events...)
}

func (b *fakeBus) byStatus(status model.Status) []model.StatusEvent {
	var out []model.StatusEvent
	for _, ev := range b.published() {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

// ---- rate limiter fake ----

type fakeLimiter struct {
	mu            sync.Mutex
	globalDenials int
	denyReset     time.Duration
}

func (l *fakeLimiter) Check(ctx context.Context, userID int64, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	return true, repository.RateInfo{Allowed: true, Limit: limit}
}

func (l *fakeLimiter) CheckGlobal(ctx context.Context, action string, limit int, period time.Duration, increment bool) (bool, repository.RateInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.globalDenials > 0 {
		l.globalDenials--
		return false, repository.RateInfo{Allowed: false, Limit: limit, ResetAfter: l.denyReset, Subject: "global", Action: action}
	}
	return true, repository.RateInfo{Allowed: true, Limit: limit}
}

func (l *fakeLimiter) Windows(ctx context.Context, userID int64) (map[string]repository.WindowInfo, error) {
	return map[string]repository.WindowInfo{}, nil
}

// ---- job queue fake ----

type fakeQueue struct {
	mu       sync.Mutex
	results  map[string]*model.JobResult
	finished map[string]bool
	trace    *trace
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{results: map[string]*model.JobResult{}, finished: map[string]bool{}}
}

func (q *fakeQueue) Enqueue(ctx context.Context, job repository.Job) (string, error) {
	return job.ID, nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*repository.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Finish(ctx context.Context, jobID string, failed bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished[jobID] = failed
	return nil
}

func (q *fakeQueue) StoreResult(ctx context.Context, jobID string, res *model.JobResult) error {
	q.mu.Lock()
	q.results[jobID] = res
	q.mu.Unlock()
	if q.trace != nil {
		q.trace.add("store_result")
	}
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
