package adapter

import "context"

// ChatMessage is one message pulled from the platform's history stream.
type ChatMessage struct {
	ID   int
	Text string
}

// Participant is one member of a chat's participant list.
type Participant struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// MessageIter walks a chat's history oldest-to-newest. The end of
// history is signaled by (nil, nil). A *domain.FloodWaitError from Next
// leaves the cursor in place; the caller sleeps the indicated duration
// and calls Next again, so no message is re-processed or skipped.
type MessageIter interface {
	Next(ctx context.Context) (*ChatMessage, error)
}

// ChatClient is the port for the chat platform's read side.
type ChatClient interface {
	Connect(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)
	IterMessages(ctx context.Context, chatID int64) (MessageIter, error)
	// HasParticipants reports whether the chat exposes a participant list.
	HasParticipants(ctx context.Context, chatID int64) (bool, error)
	Participants(ctx context.Context, chatID int64) ([]Participant, error)
	Close() error
}

// DeliverySink is the port for pushing results and status edits back to
// the requester. Failures here are logged by callers, never retried.
type DeliverySink interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendFile(ctx context.Context, userID int64, path, caption string) error
	EditMessage(ctx context.Context, userID int64, messageID int, text string) error
}
