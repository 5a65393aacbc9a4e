package events

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// EndSessionAction is the control action the client publishes over the
// data channel to ask the agent to wrap up the session.
const EndSessionAction = "end_session"

// EncodeControl encodes a control message for the data channel.
func EncodeControl(action string) ([]byte, error) {
	return json.Marshal(struct {
		Action string `json:"action"`
	}{Action: action})
}

// DecodeData normalizes a raw data-channel payload into a typed event.
//
// A payload carrying a "tool" field decodes as a ToolResult even when it
// also carries conversational role/text fields; tool fields take priority.
// Anything that fails to decode degrades to Unrecognized.
func DecodeData(raw []byte) Event {
	if !utf8.Valid(raw) {
		return NewUnrecognized()
	}

	var probe struct {
		Tool    string          `json:"tool"`
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Role    string          `json:"role"`
		Text    string          `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return NewUnrecognized()
	}

	if probe.Tool != "" {
		status := Status(probe.Status)
		if status != StatusSuccess && status != StatusError {
			return NewUnrecognized()
		}
		return NewToolResult(Tool(probe.Tool), status, probe.Message, probe.Data)
	}

	switch Speaker(probe.Role) {
	case SpeakerUser, SpeakerAgent:
		return NewTranscriptFragment(Speaker(probe.Role), probe.Text)
	}

	return NewUnrecognized()
}

// FromTranscription normalizes a transcription callback into transcript
// fragments, one per non-empty segment. Speaker attribution derives from
// whether the originating participant is the automated agent.
func FromTranscription(segments []string, fromAgent bool) []Event {
	speaker := SpeakerUser
	if fromAgent {
		speaker = SpeakerAgent
	}

	normalized := make([]Event, 0, len(segments))
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		normalized = append(normalized, NewTranscriptFragment(speaker, segment))
	}
	return normalized
}
