package coordinator

import (
	"regexp"
	"strings"
)

// Markers the decision prompt asks the model to answer with. Only the
// affirmative marker switches Dispatch to decomposition.
const (
	DecomposeMarker   = "NEEDS_DECOMPOSITION"
	SingleAgentMarker = "SINGLE_AGENT"
)

// DefaultDecisionPrompt asks whether a task needs several specialists.
const DefaultDecisionPrompt = `Decide whether the following task needs several different specialists to be completed.

Available agents:
{{range .Agents}}- {{.Name}}: {{.Specialty}}
{{end}}
Task: {{.Task}}

Answer with exactly one token: ` + DecomposeMarker + ` if the task requires subtasks with different specialties, otherwise ` + SingleAgentMarker + `.`

// DefaultDecomposePrompt asks for one subtask per line.
const DefaultDecomposePrompt = `Split the following task into subtasks. Each subtask must be completable on its own by one specialized agent.

Available agents:
{{range .Agents}}- {{.Name}}: {{.Specialty}}
{{end}}
Task: {{.Task}}

List the subtasks one per line and return nothing else.`

// DefaultSelectPrompt asks for the name of the best agent.
const DefaultSelectPrompt = `Choose the most suitable agent for the task below.

{{range .Agents}}- {{.Name}}: {{.Specialty}}
{{end}}
Task: {{.Task}}

Answer with the agent name only.`

// DefaultMergePrompt asks for a synthesis of labeled subtask results.
const DefaultMergePrompt = `Original task: {{.Task}}

Results of the subtasks:

{{.Results}}

Combine these results into one final answer to the original task.`

type agentInfo struct {
	Name      string
	Specialty string
}

type promptData struct {
	Task    string
	Agents  []agentInfo
	Results string
}

// DecisionFunc classifies the decision response; true means decompose.
type DecisionFunc func(response string) bool

// SelectFunc picks an agent name from the selection response. names are in
// registration order. ok=false makes the coordinator fall back to the first
// registered agent.
type SelectFunc func(response string, names []string) (name string, ok bool)

// MarkerDecision reports whether the response contains DecomposeMarker.
func MarkerDecision(response string) bool {
	return strings.Contains(strings.ToUpper(response), DecomposeMarker)
}

// SubstringSelect returns the first name, in registration order, contained
// in the response.
func SubstringSelect(response string, names []string) (string, bool) {
	for _, n := range names {
		if strings.Contains(response, n) {
			return n, true
		}
	}
	return "", false
}

var listPrefix = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s*`)

// ParseSubtasks splits a one-per-line listing, strips numbering or bullet
// prefixes and drops blank lines.
func ParseSubtasks(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
