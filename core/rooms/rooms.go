// Package rooms defines the contract with the external real-time room
// service. The media transport and membership protocol live behind it; the
// session engine only sees the callbacks declared here.
package rooms

import "context"

// Participant identifies a remote room member. IsAgent marks the automated
// agent so transcription callbacks can be attributed to the right speaker.
type Participant struct {
	Identity string
	IsAgent  bool
}

// TranscriptionSegment is one finalized piece of transcribed speech.
type TranscriptionSegment struct {
	Text string
}

// Client is a connection to the room service for a single session.
//
// Callbacks registered through JoinOptions are invoked in per-channel
// delivery order; no ordering is guaranteed across channels.
type Client interface {
	// Join requests credentials and enters the named room. A credential or
	// membership failure is fatal to the session start.
	Join(ctx context.Context, roomName, identity string, opts ...JoinOption) error

	// PublishData sends an opaque payload over the room data channel.
	PublishData(ctx context.Context, payload []byte) error

	// SendAudio forwards one captured audio frame to the room.
	SendAudio(frame []byte) error

	// Leave tears down room membership. Safe to call more than once.
	Leave(ctx context.Context) error
}

type JoinOptions struct {
	DataCallback          func(payload []byte)
	TranscriptionCallback func(segments []TranscriptionSegment, participant Participant)
	AudioCallback         func(frame []byte)
	DisconnectedCallback  func(reason string)
}

type JoinOption func(*JoinOptions)

func WithDataCallback(callback func(payload []byte)) JoinOption {
	return func(o *JoinOptions) {
		o.DataCallback = callback
	}
}

func WithTranscriptionCallback(callback func(segments []TranscriptionSegment, participant Participant)) JoinOption {
	return func(o *JoinOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithAudioCallback(callback func(frame []byte)) JoinOption {
	return func(o *JoinOptions) {
		o.AudioCallback = callback
	}
}

func WithDisconnectedCallback(callback func(reason string)) JoinOption {
	return func(o *JoinOptions) {
		o.DisconnectedCallback = callback
	}
}
