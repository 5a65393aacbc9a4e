// Package summaries defines the contract for post-session summary
// generation. Backends live in subpackages; failures are never fatal to a
// session, the artifact simply keeps an empty summary text.
package summaries

import "context"

// Turn is one conversation entry handed to a summarizer.
type Turn struct {
	Role string `json:"speaker"`
	Text string `json:"text"`
}

// Summarizer produces a prose summary of a finished conversation.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []Turn) (string, error)
}
