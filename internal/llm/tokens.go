package llm

import (
	"math"
	"strings"

	"telegram-chat-summarizer/internal/infra/metrics"

	"github.com/pkoukk/tiktoken-go"
)

// TruncationMarker flags the cut point in a shortened history.
const TruncationMarker = "... [TRUNCATED] ..."

// EstimateTokens is the heuristic count: words x 1.33, rounded up.
// Deliberately conservative rather than precise.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.33))
}

// Estimator counts tokens for a model: exact via tiktoken when the
// model's encoding is known, the word heuristic otherwise.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

func NewEstimator(model string) *Estimator {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

func (e *Estimator) Estimate(text string) int {
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return EstimateTokens(text)
}

// Truncate fits text under maxTokens by keeping the first and last
// halves of the budget around the truncation marker. Input already
// under budget passes through untouched.
func (e *Estimator) Truncate(text string, maxTokens int) string {
	if e.Estimate(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	keep := maxTokens / 2
	// Head, tail, and the marker together must stay shorter than the
	// input: once they would not, cutting cannot shrink the text, so it
	// passes through unchanged.
	if 2*keep+len(strings.Fields(TruncationMarker)) >= len(words) {
		return text
	}
	metrics.IncHistoryTruncated()
	head := strings.Join(words[:keep], " ")
	tail := strings.Join(words[len(words)-keep:], " ")
	return head + " " + TruncationMarker + " " + tail
}
