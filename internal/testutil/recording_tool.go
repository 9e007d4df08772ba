package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/tool"
)

// RecordingTool is a tool double that returns a fixed result and records
// every call's arguments.
type RecordingTool struct {
	name   string
	result tool.Result
	err    error

	mu    sync.Mutex
	calls []map[string]any
}

// NewRecordingTool creates a tool named name returning result.
func NewRecordingTool(name string, result tool.Result) *RecordingTool {
	return &RecordingTool{name: name, result: result}
}

// Failing makes every call return err (chainable).
func (t *RecordingTool) Failing(err error) *RecordingTool {
	t.err = err
	return t
}

// Name implements tool.Tool.
func (t *RecordingTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *RecordingTool) Description() string { return "test tool " + t.name }

// Parameters implements tool.Tool.
func (t *RecordingTool) Parameters() map[string]any { return util.EmptyObjectSchema() }

// Execute implements tool.Tool.
func (t *RecordingTool) Execute(_ context.Context, args map[string]any) (tool.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, args)

	if t.err != nil {
		return tool.Result{}, t.err
	}

	return t.result, nil
}

// Calls returns the number of executions.
func (t *RecordingTool) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.calls)
}

// Args returns the arguments of the i-th call.
func (t *RecordingTool) Args(i int) map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls[i]
}
