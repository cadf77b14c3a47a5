package retry

import (
	"strings"

	"telegram-chat-summarizer/internal/domain"
)

// Substring heuristics over the stringified error. Deliberately
// permissive: upstream chat/LLM integrations surface heterogeneous
// error types, and a wasted retry is cheaper than a premature failure.
// Swap the predicate via Options.IsRetryable where that tradeoff is wrong.
var transientMarkers = []string{
	"timeout", "connection", "socket", "network",
	"temporary", "retry", "reset", "closed", "broken pipe",
	"flood wait", "floodwait", "too many requests", "rate limit",
	"server error", "service unavailable",
}

var transientStatusCodes = []string{"429", "500", "502", "503", "504"}

// Retryable is the default classification: explicit kind tags first,
// keyword matching as the fallback for untagged errors.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindAuth:
		// Configuration problem; another attempt cannot fix it.
		return false
	case domain.KindTransient:
		return true
	case domain.KindData:
		// Empty data can be a transient upstream glitch in disguise;
		// let the attempt budget decide.
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	for _, code := range transientStatusCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
