package session

import (
	"time"

	"github.com/dkrizanic/frontdesk-core/core/summaries"
)

type ClientOption func(*Client)

// WithSummarizer enables asynchronous summary enrichment for locally
// synthesized artifacts.
func WithSummarizer(summarizer summaries.Summarizer) ClientOption {
	return func(c *Client) {
		c.summarizer = summarizer
	}
}

// WithTerminationTimeout overrides how long End waits for the agent
// before synthesizing a local summary.
func WithTerminationTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.terminationTimeout = timeout
	}
}

type StartOptions struct {
	Identity string

	TranscriptCallback   func(entry TranscriptEntry)
	ToolCallCallback     func(record ToolCallRecord)
	PhaseChangedCallback func(phase Phase)
	SummaryCallback      func(artifact *SummaryArtifact)
	DisconnectedCallback func(reason string)
	AudioCallback        func(frame []byte)
}

type StartOption func(*StartOptions)

// WithIdentity sets the participant identity used to join the room.
func WithIdentity(identity string) StartOption {
	return func(o *StartOptions) {
		o.Identity = identity
	}
}

func WithTranscriptCallback(callback func(entry TranscriptEntry)) StartOption {
	return func(o *StartOptions) {
		o.TranscriptCallback = callback
	}
}

func WithToolCallCallback(callback func(record ToolCallRecord)) StartOption {
	return func(o *StartOptions) {
		o.ToolCallCallback = callback
	}
}

func WithPhaseChangedCallback(callback func(phase Phase)) StartOption {
	return func(o *StartOptions) {
		o.PhaseChangedCallback = callback
	}
}

func WithSummaryCallback(callback func(artifact *SummaryArtifact)) StartOption {
	return func(o *StartOptions) {
		o.SummaryCallback = callback
	}
}

func WithDisconnectedCallback(callback func(reason string)) StartOption {
	return func(o *StartOptions) {
		o.DisconnectedCallback = callback
	}
}

func WithAudioCallback(callback func(frame []byte)) StartOption {
	return func(o *StartOptions) {
		o.AudioCallback = callback
	}
}
