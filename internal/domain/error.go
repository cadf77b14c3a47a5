package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrNotAuthorized    = errors.New("platform session not authorized")
	ErrEmptyHistory     = errors.New("no text history extracted")
	ErrEmptySummary     = errors.New("summarization returned no content")
	ErrQueueUnavailable = errors.New("job queue unavailable")
	ErrTerminalRequest  = errors.New("request already in terminal status")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Kind buckets errors for retry and failure-path decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth         // configuration/credentials, never retried
	KindTransient    // timeouts, resets, flood control, 5xx
	KindData         // extraction produced nothing usable
)

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// WithKind tags err with an explicit kind. The tag survives wrapping.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// KindOf reports the tagged kind of err, or KindUnknown when untagged.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return KindTransient
	}
	switch {
	case errors.Is(err, ErrNotAuthorized):
		return KindAuth
	case errors.Is(err, ErrEmptyHistory), errors.Is(err, ErrEmptySummary):
		return KindData
	}
	return KindUnknown
}

// FloodWaitError is the platform's throttle signal: back off for Seconds
// before issuing the next call.
type FloodWaitError struct {
	Seconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: %ds", e.Seconds)
}
