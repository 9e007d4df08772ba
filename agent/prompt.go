package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/internal/util"
)

// DefaultSystemPrompt is the text/template used to build an agent's system
// message. Fields: .Name .Specialty .Description .CanRequestHelp .HasTerminate.
const DefaultSystemPrompt = `You are {{.Name}}, an agent specialized in {{.Specialty}}.
{{- if .Description}}
{{.Description}}
{{- end}}

Rules:
- Work on the task with the tools available to you.
{{- if .CanRequestHelp}}
- If part of the task needs a different specialty, call request_help with the agent name and a self-contained task. Never contact other agents any other way.
{{- end}}
{{- if .HasTerminate}}
- When you have the final answer, call terminate with it.
{{- else}}
- When you have the final answer, reply with it directly.
{{- end}}`

type promptData struct {
	Name           string
	Specialty      string
	Description    string
	CanRequestHelp bool
	HasTerminate   bool
}

func renderSystemPrompt(tmpl string, data promptData) (string, error) {
	out, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("system prompt: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// formatToolRecord renders the conversation entry for one tool call.
func formatToolRecord(name, args, output string) string {
	return fmt.Sprintf("[TOOL_CALL %s] %s\n[TOOL_RESULT] %s", name, args, output)
}

// formatToolFailure renders a failed tool call reported back to the model.
func formatToolFailure(name, args string, err error) string {
	return fmt.Sprintf("[TOOL_CALL %s] %s\n[TOOL_ERROR] %v", name, args, err)
}
