package events

const (
	// KindTranscriptFragment identifies a finalized utterance fragment.
	KindTranscriptFragment Kind = "transcript.fragment"
)

// Speaker attributes an utterance to one side of the call.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// TranscriptFragment carries one finalized utterance fragment. Fragments
// arrive in per-channel delivery order and may be duplicated across the
// transcription and data channels.
type TranscriptFragment struct {
	Base
	Speaker Speaker
	Text    string
}

// NewTranscriptFragment creates a transcript fragment event.
func NewTranscriptFragment(speaker Speaker, text string) TranscriptFragment {
	return TranscriptFragment{Base: NewBase(KindTranscriptFragment), Speaker: speaker, Text: text}
}
