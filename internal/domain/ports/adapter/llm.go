package adapter

import "context"

// Summarizer is the port for the summarization collaborator.
type Summarizer interface {
	// Summarize returns the model's summary of history under the given
	// prompt. An empty summary is reported as an error, never as "".
	Summarize(ctx context.Context, prompt, history string) (string, error)
	Model() string
}
