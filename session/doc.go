// Package session persists conversation history per session id.
//
// The Store interface is consumed by the runner, which loads recent history
// as prior context before a run and appends the task and final answer after
// it. Two backends ship with the package: InMemoryStore for tests and
// ephemeral processes, and SQLiteStore for durable history on disk.
//
// Additional backends (Redis, Postgres, ...) only need to satisfy Store;
// the wiring layer decides which implementation to instantiate.
package session
