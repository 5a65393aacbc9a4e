package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkrizanic/frontdesk-core/core/events"
)

// CostLine is one service's share of the session cost.
type CostLine struct {
	Usage string  `json:"usage"`
	Cost  float64 `json:"cost"`
	Rate  string  `json:"rate"`
}

// CostBreakdown itemizes session cost by service.
type CostBreakdown struct {
	STT   CostLine `json:"stt"`
	TTS   CostLine `json:"tts"`
	LLM   CostLine `json:"llm"`
	Total float64  `json:"total"`
}

// SessionWindow frames when the session ran.
type SessionWindow struct {
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// SummaryArtifact is the terminal value of a session. Exactly one exists
// per completed session. SummaryText may be filled in after the fact by
// the asynchronous summarizer; everything else is immutable once built.
type SummaryArtifact struct {
	User                  *UserInfo         `json:"user,omitempty"`
	Session               SessionWindow     `json:"session"`
	AppointmentsBooked    []Appointment     `json:"appointments_booked"`
	AppointmentsCancelled []Appointment     `json:"appointments_cancelled"`
	Preferences           []string          `json:"preferences"`
	Transcript            []TranscriptEntry `json:"transcript"`
	ToolCalls             []ToolCallRecord  `json:"tool_calls"`
	SummaryText           string            `json:"summary_text,omitempty"`
	CostBreakdown         *CostBreakdown    `json:"cost_breakdown,omitempty"`

	// PendingSummary marks a locally synthesized, possibly incomplete
	// artifact produced because the agent's summary never arrived.
	PendingSummary bool `json:"pending_summary,omitempty"`
}

// remoteSummaryPayload is the end_conversation data shape published by
// the agent.
type remoteSummaryPayload struct {
	UserPhone          string        `json:"user_phone"`
	DurationSeconds    int           `json:"duration_seconds"`
	AppointmentsBooked []Appointment `json:"appointments_booked"`
	Preferences        []struct {
		Preference string `json:"preference"`
	} `json:"preferences"`
	Transcript []struct {
		Role string `json:"role"`
		Text string `json:"text"`
	} `json:"transcript"`
	CostBreakdown *CostBreakdown `json:"cost_breakdown"`
	SummaryText   string         `json:"summary_text"`
}

// buildLocalArtifact synthesizes the summary entirely from local state.
func buildLocalArtifact(state *sessionState, endedAt time.Time) *SummaryArtifact {
	artifact := &SummaryArtifact{
		Session: SessionWindow{
			Duration:  endedAt.Sub(state.sessionStart),
			StartTime: state.sessionStart,
			EndTime:   endedAt,
		},
		Preferences:    state.preferences,
		Transcript:     state.transcripts,
		ToolCalls:      state.toolCalls,
		CostBreakdown:  estimateCostBreakdown(state.transcripts),
		PendingSummary: true,
	}

	if state.userInfo != nil {
		userInfo := *state.userInfo
		artifact.User = &userInfo
	}

	for _, appointment := range state.appointments {
		switch appointment.Status {
		case AppointmentCancelled:
			artifact.AppointmentsCancelled = append(artifact.AppointmentsCancelled, appointment)
		default:
			artifact.AppointmentsBooked = append(artifact.AppointmentsBooked, appointment)
		}
	}

	return artifact
}

// buildRemoteArtifact builds the summary from the agent's payload,
// falling back to local state for anything the payload omits. A payload
// that fails to decode degrades to the local artifact.
func buildRemoteArtifact(state *sessionState, payload json.RawMessage, endedAt time.Time) *SummaryArtifact {
	var remote remoteSummaryPayload
	if err := json.Unmarshal(payload, &remote); err != nil {
		return buildLocalArtifact(state, endedAt)
	}

	artifact := buildLocalArtifact(state, endedAt)
	artifact.PendingSummary = false
	artifact.SummaryText = remote.SummaryText

	if remote.DurationSeconds > 0 {
		artifact.Session.Duration = time.Duration(remote.DurationSeconds) * time.Second
		artifact.Session.StartTime = endedAt.Add(-artifact.Session.Duration)
		artifact.Session.EndTime = endedAt
	}

	if artifact.User == nil && remote.UserPhone != "" {
		artifact.User = &UserInfo{Phone: remote.UserPhone}
	}

	if len(remote.AppointmentsBooked) > 0 {
		artifact.AppointmentsBooked = remote.AppointmentsBooked
	}

	if len(remote.Preferences) > 0 {
		preferences := make([]string, 0, len(remote.Preferences))
		for _, preference := range remote.Preferences {
			preferences = append(preferences, preference.Preference)
		}
		artifact.Preferences = preferences
	}

	if len(remote.Transcript) > 0 {
		transcript := make([]TranscriptEntry, 0, len(remote.Transcript))
		for _, turn := range remote.Transcript {
			transcript = append(transcript, TranscriptEntry{
				Speaker: events.Speaker(turn.Role),
				Text:    turn.Text,
			})
		}
		artifact.Transcript = transcript
	}

	if remote.CostBreakdown != nil {
		artifact.CostBreakdown = remote.CostBreakdown
	}

	return artifact
}

// Published agent-side rates; the local estimate mirrors the agent's own
// accounting so a fallback summary stays comparable.
const (
	sttRatePerSecond     = 0.0000967
	ttsRatePerChar       = 0.00001
	llmRatePerInputToken = 0.00000085
	llmRatePerOutputToken = 0.0000012
)

// estimateCostBreakdown approximates session cost from the transcript:
// speech seconds from user text length, synthesis characters from agent
// text length, tokens at roughly four characters each.
func estimateCostBreakdown(transcript []TranscriptEntry) *CostBreakdown {
	var sttSeconds float64
	var ttsChars, userChars int

	for _, entry := range transcript {
		switch entry.Speaker {
		case events.SpeakerUser:
			sttSeconds += float64(len(entry.Text)) / 15.0
			userChars += len(entry.Text)
		case events.SpeakerAgent:
			ttsChars += len(entry.Text)
		}
	}

	inputTokens := userChars / 4
	outputTokens := ttsChars / 4

	sttCost := sttSeconds * sttRatePerSecond
	ttsCost := float64(ttsChars) * ttsRatePerChar
	llmCost := float64(inputTokens)*llmRatePerInputToken + float64(outputTokens)*llmRatePerOutputToken

	return &CostBreakdown{
		STT: CostLine{
			Usage: fmt.Sprintf("%.1fs", sttSeconds),
			Cost:  sttCost,
			Rate:  "$0.0058/min",
		},
		TTS: CostLine{
			Usage: fmt.Sprintf("%d chars", ttsChars),
			Cost:  ttsCost,
			Rate:  "$10.00/1M chars",
		},
		LLM: CostLine{
			Usage: fmt.Sprintf("%din + %dout tokens", inputTokens, outputTokens),
			Cost:  llmCost,
			Rate:  "$0.85/1M in, $1.20/1M out",
		},
		Total: sttCost + ttsCost + llmCost,
	}
}
