// Package coordinator implements the hub that owns a set of named agents,
// routes tasks to them and mediates every agent-to-agent request.
//
// Dispatch asks the model whether a task needs several specialties. If not,
// one agent is selected and runs the whole task. Otherwise the task is split
// into subtasks (one per line), each routed to its best agent in order, and
// the labeled results are merged by one final synthesis call; a single
// subtask result is returned verbatim.
//
// Handoff serves request_help calls from agents. It strips system messages
// from the requester's context, runs the target with its own step budget and
// refuses chains that revisit an agent or exceed MaxHandoffDepth.
package coordinator
