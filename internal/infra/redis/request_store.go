package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/repository"
)

const requestTTL = 24 * time.Hour

var _ repository.RequestStore = (*RequestStore)(nil)

// RequestStore keeps request records in hashes with a sliding 24h TTL.
// All hash fields are text; encodeRequest/decodeRequest below are the
// only places that convert between the typed record and its stored form.
type RequestStore struct {
	client Client
}

func NewRequestStore(client Client) *RequestStore {
	return &RequestStore{client: client}
}

func requestKey(id string) string {
	return fmt.Sprintf("request:%s:data", id)
}

func (s *RequestStore) Create(ctx context.Context, req *model.Request) error {
	key := requestKey(req.ID)
	if err := s.client.HSet(ctx, key, encodeRequest(req)); err != nil {
		return fmt.Errorf("create request %s: %w", req.ID, err)
	}
	return s.client.Expire(ctx, key, requestTTL)
}

func (s *RequestStore) Get(ctx context.Context, requestID string) (*model.Request, error) {
	fields, err := s.client.HGetAll(ctx, requestKey(requestID))
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return decodeRequest(requestID, fields), nil
}

func (s *RequestStore) UpdateStatus(ctx context.Context, requestID string, status model.Status) error {
	cur, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return domain.ErrTerminalRequest
	}
	return s.setFields(ctx, requestID, map[string]string{"status": string(status)})
}

func (s *RequestStore) SetPrompt(ctx context.Context, requestID, prompt string) error {
	return s.setFields(ctx, requestID, map[string]string{"custom_prompt": prompt})
}

func (s *RequestStore) SetJobID(ctx context.Context, requestID, jobID string) error {
	return s.setFields(ctx, requestID, map[string]string{"rq_job_id": jobID})
}

func (s *RequestStore) SetProgress(ctx context.Context, requestID string, processed int) error {
	return s.setFields(ctx, requestID, map[string]string{"progress": strconv.Itoa(processed)})
}

func (s *RequestStore) SetResult(ctx context.Context, requestID, summary, participantsFile, errText string) error {
	fields := map[string]string{}
	if summary != "" {
		fields["summary"] = summary
	}
	if participantsFile != "" {
		fields["participants_file"] = participantsFile
	}
	if errText != "" {
		fields["error"] = errText
	}
	if len(fields) == 0 {
		return nil
	}
	return s.setFields(ctx, requestID, fields)
}

// setFields writes one atomic HSET and slides the record TTL forward.
func (s *RequestStore) setFields(ctx context.Context, requestID string, fields map[string]string) error {
	key := requestKey(requestID)
	if err := s.client.HSet(ctx, key, fields); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, requestTTL)
}

// ---- codec boundary: typed record <-> text hash ----

func encodeRequest(req *model.Request) map[string]string {
	fields := map[string]string{
		"user_id":        strconv.FormatInt(req.UserID, 10),
		"target_chat_id": strconv.FormatInt(req.ChatID, 10),
		"status":         string(req.Status),
	}
	if req.CustomPrompt != "" {
		fields["custom_prompt"] = req.CustomPrompt
	}
	if req.JobID != "" {
		fields["rq_job_id"] = req.JobID
	}
	if req.Progress != nil {
		fields["progress"] = strconv.Itoa(*req.Progress)
	}
	return fields
}

func decodeRequest(id string, fields map[string]string) *model.Request {
	req := &model.Request{
		ID:               id,
		CustomPrompt:     fields["custom_prompt"],
		Status:           model.Status(fields["status"]),
		JobID:            fields["rq_job_id"],
		Summary:          fields["summary"],
		ParticipantsFile: fields["participants_file"],
		Error:            fields["error"],
	}
	req.UserID, _ = strconv.ParseInt(fields["user_id"], 10, 64)
	req.ChatID, _ = strconv.ParseInt(fields["target_chat_id"], 10, 64)
	if v, ok := fields["progress"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			req.Progress = &n
		}
	}
	return req
}
