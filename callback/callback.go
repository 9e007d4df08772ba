// Package callback provides lifecycle hooks around the agent loop and the
// coordinator: model calls, tool executions, handoffs and errors.
//
// Callbacks run synchronously in registration order. A callback returning
// an error aborts the operation it is attached to.
package callback

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// Type defines the lifecycle point a callback is attached to.
type Type string

const (
	// BeforeModel is triggered before every generation call of an agent step.
	BeforeModel Type = "before_model"

	// AfterModel is triggered once the generation call returned.
	AfterModel Type = "after_model"

	// BeforeTool is triggered before a registry tool executes.
	BeforeTool Type = "before_tool"

	// AfterTool is triggered after a registry tool executed successfully.
	AfterTool Type = "after_tool"

	// OnHandoff is triggered when the coordinator mediates a request_help call.
	OnHandoff Type = "on_handoff"

	// OnError is triggered when a run fails. Its own error is ignored.
	OnError Type = "on_error"
)

// Handoff describes a mediated agent-to-agent request.
type Handoff struct {
	From  string
	To    string
	Task  string
	Depth int
}

// Context carries the information available at a lifecycle point. Only
// the fields relevant to Type are populated.
type Context struct {
	Type     Type
	Agent    string
	Step     int
	Request  *model.Request
	Response *model.Response
	ToolCall *core.ToolCall
	Result   *tool.Result
	Handoff  *Handoff
	Err      error
	Metadata map[string]any
}

// Callback defines the interface for lifecycle hooks.
type Callback interface {
	// Type returns the lifecycle point this callback handles.
	Type() Type

	// Execute performs the callback logic. Returning an error aborts the
	// associated operation.
	Execute(ctx context.Context, cbCtx *Context) error
}

// FunctionCallback wraps a function as a callback implementation.
//
//	cb := callback.NewFunctionCallback(callback.OnHandoff, func(ctx context.Context, c *callback.Context) error {
//	    log.Printf("%s -> %s", c.Handoff.From, c.Handoff.To)
//	    return nil
//	})
type FunctionCallback struct {
	typ Type
	fn  func(ctx context.Context, cbCtx *Context) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(typ Type, fn func(ctx context.Context, cbCtx *Context) error) *FunctionCallback {
	return &FunctionCallback{typ: typ, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() Type { return c.typ }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *Context) error {
	return c.fn(ctx, cbCtx)
}

// Manager holds callbacks by type.
//
// Registration is not synchronized; register everything before the first
// run. Execution is safe for concurrent use afterwards. A nil *Manager is
// valid and executes nothing.
type Manager struct {
	callbacks map[Type][]Callback
}

// NewManager creates a manager holding the given callbacks.
func NewManager(cbs ...Callback) *Manager {
	m := &Manager{callbacks: make(map[Type][]Callback)}
	for _, cb := range cbs {
		m.Register(cb)
	}
	return m
}

// Register adds a callback. Callbacks of one type run in registration order.
func (m *Manager) Register(cb Callback) {
	m.callbacks[cb.Type()] = append(m.callbacks[cb.Type()], cb)
}

// RegisterFunc is shorthand for Register(NewFunctionCallback(typ, fn)).
func (m *Manager) RegisterFunc(typ Type, fn func(ctx context.Context, cbCtx *Context) error) {
	m.Register(NewFunctionCallback(typ, fn))
}

// Execute runs all callbacks of cbCtx.Type and stops at the first error.
func (m *Manager) Execute(ctx context.Context, cbCtx *Context) error {
	if m == nil {
		return nil
	}

	for _, cb := range m.callbacks[cbCtx.Type] {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of callbacks registered for typ.
func (m *Manager) Len(typ Type) int {
	if m == nil {
		return 0
	}
	return len(m.callbacks[typ])
}

// LoggingCallback forwards lifecycle events to a logger at debug level.
// Used by the CLI's verbose trace.
type LoggingCallback struct {
	typ    Type
	logger logging.Logger
}

// NewLoggingCallback creates a logging callback for typ.
func NewLoggingCallback(typ Type, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{typ: typ, logger: logging.OrNoOp(logger)}
}

// NewLoggingCallbacks returns one LoggingCallback per lifecycle point.
func NewLoggingCallbacks(logger logging.Logger) []Callback {
	types := []Type{BeforeModel, AfterModel, BeforeTool, AfterTool, OnHandoff, OnError}
	out := make([]Callback, 0, len(types))
	for _, t := range types {
		out = append(out, NewLoggingCallback(t, logger))
	}
	return out
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() Type { return c.typ }

// Execute logs the event.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *Context) error {
	args := []any{"agent", cbCtx.Agent, "step", cbCtx.Step}

	switch {
	case cbCtx.ToolCall != nil:
		args = append(args, "tool", cbCtx.ToolCall.Name)
	case cbCtx.Handoff != nil:
		args = append(args, "from", cbCtx.Handoff.From, "to", cbCtx.Handoff.To, "depth", cbCtx.Handoff.Depth)
	}

	if cbCtx.Result != nil {
		args = append(args, "terminal", cbCtx.Result.Terminal)
	}

	if cbCtx.Response != nil {
		args = append(args, "tool_calls", len(cbCtx.Response.ToolCalls))
	}

	if cbCtx.Err != nil {
		args = append(args, "error", cbCtx.Err.Error())
	}

	c.logger.Debug("callback."+string(c.typ), args...)

	return nil
}
