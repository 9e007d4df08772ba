package testutil

import (
	"encoding/json"

	"github.com/hupe1980/taskmesh/core"
)

// ConversationBuilder helps construct message histories with fluent chaining.
// Example:
//
//	msgs := NewConversationBuilder().System("rules").User("hi").Assistant("hello").Build()
type ConversationBuilder struct {
	msgs []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

// System appends a system message (chainable).
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.SystemMessage(text))
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.UserMessage(text))
	return b
}

// Assistant appends an assistant message (chainable).
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.AssistantMessage(text))
	return b
}

// Tool appends a tool-result message (chainable).
func (b *ConversationBuilder) Tool(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.ToolMessage(text))
	return b
}

// Build returns a copy of the accumulated messages.
func (b *ConversationBuilder) Build() []core.Message { return core.CloneMessages(b.msgs) }

// Call builds a tool call whose arguments are args marshaled to JSON.
func Call(name string, args map[string]any) core.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return core.ToolCall{ID: "call_" + name, Name: name, Arguments: string(raw)}
}

// RawCall builds a tool call with a verbatim argument payload.
func RawCall(name, raw string) core.ToolCall {
	return core.ToolCall{ID: "call_" + name, Name: name, Arguments: raw}
}

// CountRole returns how many messages have the given role.
func CountRole(msgs []core.Message, role core.Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}
