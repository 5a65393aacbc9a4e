package gateway

import "encoding/json"

const (
	frameTypeData          = "data"
	frameTypeTranscription = "transcription"
	frameTypeDisconnect    = "disconnect"
)

// frame is the text-message envelope on the gateway websocket. Audio
// travels as binary messages and never appears here.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	Participant *frameParticipant `json:"participant,omitempty"`
	Segments    []frameSegment    `json:"segments,omitempty"`

	Reason string `json:"reason,omitempty"`
}

type frameParticipant struct {
	Identity string `json:"identity"`
	IsAgent  bool   `json:"is_agent"`
}

type frameSegment struct {
	Text string `json:"text"`
}
