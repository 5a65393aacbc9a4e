package session

import (
	"encoding/json"

	"github.com/dkrizanic/frontdesk-core/core/events"
)

type reduceOutcome int

const (
	// reduceNoEffect: the result was recorded but changed no derived state.
	reduceNoEffect reduceOutcome = iota
	// reduceApplied: derived session state changed.
	reduceApplied
	// reduceUnknownAppointment: a cancellation or modification referenced
	// an appointment id not in the current list.
	reduceUnknownAppointment
)

// recordToolCall appends the result to the bounded display log.
func recordToolCall(state *sessionState, result events.ToolResult) ToolCallRecord {
	record := ToolCallRecord{
		Tool:    result.Tool,
		Status:  result.Status,
		Message: result.Message,
		Time:    result.Timestamp(),
	}
	state.toolCalls = append(state.toolCalls, record)
	if overflow := len(state.toolCalls) - toolCallCap; overflow > 0 {
		state.toolCalls = state.toolCalls[overflow:]
	}
	return record
}

// reduceToolResult applies the tool-specific derived-state transition for
// a successful result. Error results and unknown tool names are display
// only and never reach this function's mutation paths. Payloads that fail
// to decode leave state untouched.
func reduceToolResult(state *sessionState, result events.ToolResult) reduceOutcome {
	if result.Status != events.StatusSuccess {
		return reduceNoEffect
	}

	switch result.Tool {
	case events.ToolIdentifyUser:
		var payload UserInfo
		if err := json.Unmarshal(result.Data, &payload); err != nil || payload.Phone == "" {
			return reduceNoEffect
		}
		state.userInfo = &payload
		return reduceApplied

	case events.ToolRetrieveAppointments:
		var payload struct {
			Appointments []Appointment `json:"appointments"`
		}
		if err := json.Unmarshal(result.Data, &payload); err != nil {
			return reduceNoEffect
		}
		state.appointments = payload.Appointments
		return reduceApplied

	case events.ToolBookAppointment:
		var payload Appointment
		if err := json.Unmarshal(result.Data, &payload); err != nil || payload.Date == "" {
			return reduceNoEffect
		}
		if payload.Status == "" {
			payload.Status = AppointmentConfirmed
		}
		state.appointments = append(state.appointments, payload)
		return reduceApplied

	case events.ToolCancelAppointment:
		var payload struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(result.Data, &payload); err != nil {
			return reduceNoEffect
		}
		for i := range state.appointments {
			if state.appointments[i].ID == payload.ID {
				state.appointments[i].Status = AppointmentCancelled
				return reduceApplied
			}
		}
		return reduceUnknownAppointment

	case events.ToolModifyAppointment:
		var payload struct {
			ID   int64  `json:"id"`
			Date string `json:"date"`
			Time string `json:"time"`
		}
		if err := json.Unmarshal(result.Data, &payload); err != nil {
			return reduceNoEffect
		}
		for i := range state.appointments {
			if state.appointments[i].ID == payload.ID {
				if payload.Date != "" {
					state.appointments[i].Date = payload.Date
				}
				if payload.Time != "" {
					state.appointments[i].Time = payload.Time
				}
				return reduceApplied
			}
		}
		return reduceUnknownAppointment

	case events.ToolFetchSlots:
		var payload struct {
			Slots []Slot `json:"slots"`
		}
		if err := json.Unmarshal(result.Data, &payload); err != nil {
			return reduceNoEffect
		}
		state.slots = payload.Slots
		return reduceApplied

	case events.ToolCapturePreference:
		var payload struct {
			Preference string `json:"preference"`
		}
		if err := json.Unmarshal(result.Data, &payload); err != nil || payload.Preference == "" {
			// The agent sometimes carries the note only in the message.
			if result.Message == "" {
				return reduceNoEffect
			}
			payload.Preference = result.Message
		}
		state.preferences = append(state.preferences, payload.Preference)
		return reduceApplied

	case events.ToolEndConversation:
		// Completion signal; the termination coordinator owns it.
		return reduceNoEffect
	}

	// Unknown tool names are forward-compatible no-ops.
	return reduceNoEffect
}
