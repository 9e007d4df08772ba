package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/model"
)

// RequestHelpName is the reserved tool name agents use to ask the
// coordinator for another agent's help. It is never dispatched through a
// Registry: the agent loop intercepts it.
const RequestHelpName = "request_help"

// HelpRequest is the decoded argument payload of a request_help call.
type HelpRequest struct {
	Agent string `json:"agent"`
	Task  string `json:"task"`
}

// RequestHelpDefinition returns the catalog entry for request_help. When
// agents is non-empty the valid names are listed in the schema.
func RequestHelpDefinition(agents []string) model.ToolDefinition {
	agentProp := map[string]any{"type": "string", "description": "Name of the agent that should handle the subtask"}
	desc := "Ask another specialized agent to complete a subtask. The coordinator runs the agent and returns its answer."

	if len(agents) > 0 {
		agentProp["enum"] = agents
		desc += " Available agents: " + strings.Join(agents, ", ") + "."
	}

	return model.ToolDefinition{
		Name:        RequestHelpName,
		Description: desc,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": agentProp,
				"task":  map[string]any{"type": "string", "description": "Self-contained description of the subtask"},
			},
			"required": []string{"agent", "task"},
		},
	}
}

// ParseHelpRequest extracts the target agent and subtask from decoded arguments.
func ParseHelpRequest(args map[string]any) (HelpRequest, error) {
	req := HelpRequest{
		Agent: strings.TrimSpace(StringArg(args, "agent")),
		Task:  strings.TrimSpace(StringArg(args, "task")),
	}
	if req.Agent == "" {
		return req, &ToolError{Tool: RequestHelpName, Message: "field 'agent' must be non-empty string", Code: CodeValidation}
	}
	if req.Task == "" {
		return req, &ToolError{Tool: RequestHelpName, Message: fmt.Sprintf("field 'task' for agent %q must be non-empty string", req.Agent), Code: CodeValidation}
	}
	return req, nil
}
