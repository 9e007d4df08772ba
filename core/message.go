package core

import "github.com/google/uuid"

// Role identifies the author of a Message inside a conversation.
type Role string

const (
	// RoleSystem carries standing instructions for the model.
	RoleSystem Role = "system"
	// RoleUser carries the task or a user turn.
	RoleUser Role = "user"
	// RoleAssistant carries model generated text.
	RoleAssistant Role = "assistant"
	// RoleTool carries the recorded outcome of a tool invocation.
	RoleTool Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is a single conversation entry. Conversations are ordered slices of
// messages; the order is the model's context and therefore significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage creates a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage creates a tool-result message.
func ToolMessage(content string) Message { return Message{Role: RoleTool, Content: content} }

// ToolCall describes a tool/function invocation requested by a model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Provider supplied id (generated when absent)
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Raw argument payload, expected to be a JSON object
}

// CloneMessages returns a copy of msgs that can be appended to without
// aliasing the caller's backing array.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// WithoutRole returns the messages whose role differs from role, preserving order.
func WithoutRole(msgs []Message, role Role) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == role {
			continue
		}
		out = append(out, m)
	}
	return out
}

// NewID returns a random unique identifier.
func NewID() string { return uuid.NewString() }
