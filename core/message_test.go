package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("function").Valid())
	assert.False(t, Role("").Valid())
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "s"}, SystemMessage("s"))
	assert.Equal(t, Message{Role: RoleUser, Content: "u"}, UserMessage("u"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "a"}, AssistantMessage("a"))
	assert.Equal(t, Message{Role: RoleTool, Content: "t"}, ToolMessage("t"))
}

func TestWithoutRole(t *testing.T) {
	msgs := []Message{
		SystemMessage("rules"),
		UserMessage("task"),
		SystemMessage("more rules"),
		ToolMessage("result"),
	}

	filtered := WithoutRole(msgs, RoleSystem)

	assert.Equal(t, []Message{UserMessage("task"), ToolMessage("result")}, filtered)
	assert.Len(t, msgs, 4, "input must not be modified")
}

func TestCloneMessages_NoAliasing(t *testing.T) {
	base := make([]Message, 1, 4)
	base[0] = UserMessage("a")

	clone := CloneMessages(base)
	clone = append(clone, UserMessage("b"))
	clone[0].Content = "changed"

	assert.Equal(t, "a", base[0].Content)
	assert.Len(t, clone, 2)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
