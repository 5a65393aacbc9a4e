package session

import (
	"strings"
	"time"

	"github.com/dkrizanic/frontdesk-core/core/events"
)

// appendTranscript folds one utterance into the conversation log and
// reports whether it was accepted.
//
// The transcription stream and the data channel can both carry the same
// utterance, so an entry identical to the immediately preceding one (same
// speaker, same text) is dropped. Only the last entry is checked; this is
// a constant-time best-effort dedup, not full-history dedup.
func appendTranscript(state *sessionState, speaker events.Speaker, text string, at time.Time) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	if n := len(state.transcripts); n > 0 {
		last := state.transcripts[n-1]
		if last.Speaker == speaker && last.Text == text {
			return false
		}
	}

	state.transcripts = append(state.transcripts, TranscriptEntry{
		Speaker: speaker,
		Text:    text,
		Time:    at,
	})
	if overflow := len(state.transcripts) - transcriptCap; overflow > 0 {
		state.transcripts = state.transcripts[overflow:]
	}
	return true
}
