package agent

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
)

// Handoffer mediates request_help calls. The coordinator implements it; an
// agent only ever sees this interface, never another agent.
type Handoffer interface {
	// Handoff runs agent `to` on task on behalf of agent `from`. The
	// conversation is the requester's current context. A missing target is
	// reported through the returned text, not as an error.
	Handoff(ctx context.Context, from, to, task string, conversation []core.Message) (string, error)
}

// agentLister is optionally implemented by a Handoffer to advertise the
// names accepted by request_help.
type agentLister interface {
	AgentNames() []string
}
