package session

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/dkrizanic/frontdesk-core/core/events"
)

const (
	transcriptCap = 50
	toolCallCap   = 10
)

// Phase of the session lifecycle. Transitions are one-directional within a
// session instance; only Reset or a new Start returns the client to Idle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseLive       Phase = "live"
	PhaseEnding     Phase = "ending"
	PhaseSummarized Phase = "summarized"
)

// UserInfo is the identity captured by the agent's identify_user tool.
type UserInfo struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

const (
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

// Appointment mirrors one booking row as reported by the agent.
type Appointment struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Purpose string `json:"purpose,omitempty"`
	Status  string `json:"status"`
}

// Slot is one bookable slot from a fetch_slots result.
type Slot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// TranscriptEntry is one accepted utterance. Entries are append-only and
// ordered by arrival, not by when the words were spoken.
type TranscriptEntry struct {
	Speaker events.Speaker `json:"speaker"`
	Text    string         `json:"text"`
	Time    time.Time      `json:"time"`
}

// ToolCallRecord is one tool outcome kept for display.
type ToolCallRecord struct {
	Tool    events.Tool   `json:"tool"`
	Status  events.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Time    time.Time     `json:"time"`
}

// sessionState is the single mutable aggregate for one session. It is
// owned by the client's event loop; every mutation goes through the
// reducer entry points in transcript.go and reducer.go.
type sessionState struct {
	userInfo     *UserInfo
	appointments []Appointment
	preferences  []string
	slots        []Slot
	transcripts  []TranscriptEntry
	toolCalls    []ToolCallRecord
	sessionStart time.Time
}

// Snapshot is a point-in-time copy of session state, safe to hold after
// the session has moved on.
type Snapshot struct {
	Phase          Phase
	UserInfo       *UserInfo
	Appointments   []Appointment
	Preferences    []string
	AvailableSlots []Slot
	Transcript     []TranscriptEntry
	ToolCalls      []ToolCallRecord
	SessionStart   time.Time
}

func (s *sessionState) snapshot(phase Phase) Snapshot {
	snapshot := Snapshot{
		Phase:        phase,
		SessionStart: s.sessionStart,
	}

	if s.userInfo != nil {
		userInfo := *s.userInfo
		snapshot.UserInfo = &userInfo
	}

	copier.Copy(&snapshot.Appointments, &s.appointments)
	copier.Copy(&snapshot.Preferences, &s.preferences)
	copier.Copy(&snapshot.AvailableSlots, &s.slots)
	copier.Copy(&snapshot.Transcript, &s.transcripts)
	copier.Copy(&snapshot.ToolCalls, &s.toolCalls)

	return snapshot
}
