package model

import "time"

// Status is one phase of the request state machine.
type Status string

const (
	StatusPendingPrompt          Status = "PENDING_PROMPT"
	StatusQueued                 Status = "QUEUED"
	StatusStarted                Status = "STARTED"
	StatusExtractingHistory      Status = "EXTRACTING_HISTORY"
	StatusProgress               Status = "PROGRESS"
	StatusWaiting                Status = "WAITING"
	StatusExtractingParticipants Status = "EXTRACTING_PARTICIPANTS"
	StatusCallingLLM             Status = "CALLING_LLM"
	StatusSuccess                Status = "SUCCESS"
	StatusFailed                 Status = "FAILED"
)

// Terminal reports whether no further status write is valid.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Known reports whether s is one of the defined phases. Consumers treat
// unknown statuses as opaque rather than rejecting them.
func (s Status) Known() bool {
	switch s {
	case StatusPendingPrompt, StatusQueued, StatusStarted,
		StatusExtractingHistory, StatusProgress, StatusWaiting,
		StatusExtractingParticipants, StatusCallingLLM,
		StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Request is one user-initiated extraction, tracked end to end by ID.
type Request struct {
	ID           string
	UserID       int64
	ChatID       int64
	CustomPrompt string
	Status       Status
	JobID        string
	Progress     *int

	// Result fields, written once by the relay on completion so the
	// status API can serve them without touching the queue.
	Summary          string
	ParticipantsFile string
	Error            string
}

// StatusEvent is the transient bus message for one status transition.
// RequestStore stays the durable record; this is only a liveness signal.
type StatusEvent struct {
	JobID     string `json:"job_id,omitempty"`
	ChatID    int64  `json:"chat_id"`
	Status    Status `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Progress  *int   `json:"progress,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ResultStatus marks the outcome of a pipeline run.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultFailure ResultStatus = "FAILURE"
)

// ResultMetrics carries timing and volume counters for a finished run.
type ResultMetrics struct {
	MessageCount     int   `json:"message_count"`
	ParticipantCount int   `json:"participant_count"`
	DurationMillis   int64 `json:"duration_ms"`
	Attempts         int   `json:"attempts"`
}

// JobResult is the payload a completed pipeline run leaves behind.
// Produced once by the worker, consumed once by the relay, then subject
// to the queue's own result TTL.
type JobResult struct {
	Status           ResultStatus   `json:"status"`
	Summary          string         `json:"summary,omitempty"`
	ParticipantsFile string         `json:"participants_file,omitempty"`
	Error            string         `json:"error,omitempty"`
	Trace            string         `json:"trace,omitempty"`
	Metrics          *ResultMetrics `json:"metrics,omitempty"`
	RequestID        string         `json:"request_id"`
	UserID           int64          `json:"user_id"`
	ChatID           int64          `json:"chat_id"`
	FinishedAt       time.Time      `json:"finished_at"`
}
