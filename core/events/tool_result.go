package events

import "encoding/json"

const (
	// KindToolResult identifies a discrete tool outcome from the agent.
	KindToolResult Kind = "tool.result"
)

// ToolResult carries one tool outcome published by the agent over the data
// channel. Data holds the tool-specific payload verbatim; consumers decode
// it per tool.
type ToolResult struct {
	Base
	Tool    Tool
	Status  Status
	Message string
	Data    json.RawMessage
}

// NewToolResult creates a tool result event.
func NewToolResult(tool Tool, status Status, message string, data json.RawMessage) ToolResult {
	return ToolResult{Base: NewBase(KindToolResult), Tool: tool, Status: status, Message: message, Data: data}
}
