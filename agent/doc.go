// Package agent implements the step-bounded tool-calling loop run by one
// specialized agent.
//
// An Agent is built once from an immutable Spec, a model and a tool
// Registry. Run builds a fresh conversation (system prompt, optional prior
// context, task) and then, for at most MaxSteps generation calls:
//
//   - executes requested tool calls strictly in the order received
//   - routes request_help calls to the attached Handoffer (the coordinator)
//   - returns as soon as a tool reports a terminal result or the model
//     answers with plain text
//
// Argument parse failures, unknown tools and budget exhaustion are fatal
// and surface as *RunError wrapping ErrArgumentParse, ErrUnknownTool or
// ErrStepBudgetExceeded. An agent never references another agent: all
// cross-agent traffic goes through the Handoffer.
package agent
