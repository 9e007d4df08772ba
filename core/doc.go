// Package core provides the foundational domain types shared by every other
// taskmesh package:
//
//   - Message / Role (ordered conversation entries handed to models)
//   - ToolCall (a capability invocation requested by a model)
//   - StepBudget (bounds the number of generation calls of a single run)
//   - SearchResult (a scored retrieval hit)
//
// The package has no behaviour beyond small helpers so that agents, the
// coordinator, model adapters and persistence backends can all depend on it
// without creating import cycles.
package core
