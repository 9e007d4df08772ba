// Package logging provides a minimal logging interface and adapters for taskmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, the coordinator and the runner use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with component scoping and domain helpers (tool, model, run)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "console", false)
//	ag := agent.New(spec, llm, registry, func(o *agent.Options) { o.Logger = logger })
//
// The interface is intentionally minimal to avoid vendor lock-in while
// supporting structured logging where available.
package logging
