package agent

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrArgumentParse means a tool call's arguments were not a JSON object.
	ErrArgumentParse = errors.New("tool arguments are not a valid JSON object")

	// ErrUnknownTool means the model requested a tool missing from the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrStepBudgetExceeded means the run used every step without an answer.
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
)

// RunError describes why an agent run failed.
type RunError struct {
	Agent string // agent name
	Step  int    // step at which the run failed
	Tool  string // tool involved, if any
	Err   error
}

func (e *RunError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("agent %s: step %d: tool %s: %v", e.Agent, e.Step, e.Tool, e.Err)
	}
	return fmt.Sprintf("agent %s: step %d: %v", e.Agent, e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
