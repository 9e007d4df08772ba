package coordinator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/taskmesh/callback"
	"github.com/hupe1980/taskmesh/core"
)

type chainKey struct{}

// handoffChain returns the agents currently working on the request, root first.
func handoffChain(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withHandoffChain(ctx context.Context, chain []string) context.Context {
	return context.WithValue(ctx, chainKey{}, chain)
}

// Handoff implements agent.Handoffer. Missing targets, cycles and chains
// deeper than MaxHandoffDepth are reported as text so the requesting run
// can continue.
func (c *Coordinator) Handoff(ctx context.Context, from, to, task string, conversation []core.Message) (string, error) {
	chain := slices.Clone(handoffChain(ctx))
	if len(chain) == 0 || chain[len(chain)-1] != from {
		chain = append(chain, from)
	}

	c.opts.Logger.Info("coordinator.handoff", "from", from, "to", to, "depth", len(chain))

	target, ok := c.Agent(to)
	if !ok {
		c.opts.Logger.Warn("coordinator.handoff.unknown_target", "from", from, "to", to)
		return fmt.Sprintf("Error: agent %q does not exist. Available agents: %s.", to, strings.Join(c.AgentNames(), ", ")), nil
	}

	if slices.Contains(chain, to) {
		c.opts.Logger.Warn("coordinator.handoff.cycle", "from", from, "to", to, "chain", strings.Join(chain, " -> "))
		return fmt.Sprintf("Error: handoff refused, agent %q is already working on this request (%s). Finish the subtask yourself.", to, strings.Join(chain, " -> ")), nil
	}

	if len(chain) > c.opts.MaxHandoffDepth {
		c.opts.Logger.Warn("coordinator.handoff.depth_exceeded", "from", from, "to", to, "max", c.opts.MaxHandoffDepth)
		return fmt.Sprintf("Error: handoff refused, maximum handoff depth %d reached (%s). Finish the subtask yourself.", c.opts.MaxHandoffDepth, strings.Join(chain, " -> ")), nil
	}

	if err := c.opts.Callbacks.Execute(ctx, &callback.Context{
		Type:    callback.OnHandoff,
		Agent:   from,
		Handoff: &callback.Handoff{From: from, To: to, Task: task, Depth: len(chain)},
	}); err != nil {
		return "", err
	}

	filtered := core.WithoutRole(conversation, core.RoleSystem)

	result, err := target.Run(withHandoffChain(ctx, append(chain, to)), task, filtered)
	if err != nil {
		return "", err
	}

	c.opts.Logger.Info("coordinator.handoff.complete", "from", from, "to", to)

	return result, nil
}
