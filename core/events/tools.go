package events

// Tool names the agent can report results for. The set is closed on the
// agent side; unknown names still decode so that newer agents keep working
// against older clients (the reducer treats them as display-only).
type Tool string

const (
	ToolIdentifyUser         Tool = "identify_user"
	ToolFetchSlots           Tool = "fetch_slots"
	ToolBookAppointment      Tool = "book_appointment"
	ToolRetrieveAppointments Tool = "retrieve_appointments"
	ToolCancelAppointment    Tool = "cancel_appointment"
	ToolModifyAppointment    Tool = "modify_appointment"
	ToolCapturePreference    Tool = "capture_preference"
	ToolEndConversation      Tool = "end_conversation"
)

// KnownTool reports whether the name belongs to the published tool set.
func KnownTool(tool Tool) bool {
	switch tool {
	case ToolIdentifyUser, ToolFetchSlots, ToolBookAppointment,
		ToolRetrieveAppointments, ToolCancelAppointment,
		ToolModifyAppointment, ToolCapturePreference, ToolEndConversation:
		return true
	}
	return false
}

// Status of a tool result as reported by the agent.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)
