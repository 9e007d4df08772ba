// Package runner executes tasks against an agent or coordinator with
// session history.
//
// A Runner loads the recent history of a session, trims it to a context
// budget, passes it as prior conversation and persists the task and final
// answer afterwards. RunQueue drains a persistent task queue one task at a
// time, and Scheduler triggers jobs such as queue draining on a cron
// expression.
package runner
