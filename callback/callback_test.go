package callback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestManager_OrderAndAbort(t *testing.T) {
	var order []string
	stop := errors.New("stop")

	m := NewManager()
	m.RegisterFunc(BeforeTool, func(context.Context, *Context) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterFunc(BeforeTool, func(context.Context, *Context) error {
		order = append(order, "second")
		return stop
	})
	m.RegisterFunc(BeforeTool, func(context.Context, *Context) error {
		order = append(order, "third")
		return nil
	})

	err := m.Execute(context.Background(), &Context{Type: BeforeTool})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 3, m.Len(BeforeTool))
}

func TestManager_OtherTypesUntouched(t *testing.T) {
	called := false
	m := NewManager(NewFunctionCallback(AfterModel, func(context.Context, *Context) error {
		called = true
		return nil
	}))

	require.NoError(t, m.Execute(context.Background(), &Context{Type: BeforeModel}))
	assert.False(t, called)
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	require.NoError(t, m.Execute(context.Background(), &Context{Type: OnError}))
	assert.Zero(t, m.Len(OnError))
}

type mockLogger struct{ mock.Mock }

func (m *mockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *mockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *mockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

func TestLoggingCallback(t *testing.T) {
	logger := &mockLogger{}
	logger.On("Debug", "callback.before_tool", []any{"agent", "Coder", "step", 2, "tool", "rag"}).Return()

	cb := NewLoggingCallback(BeforeTool, logger)
	err := cb.Execute(context.Background(), &Context{
		Type:     BeforeTool,
		Agent:    "Coder",
		Step:     2,
		ToolCall: &core.ToolCall{Name: "rag"},
	})
	require.NoError(t, err)
	logger.AssertExpectations(t)

	assert.Len(t, NewLoggingCallbacks(logger), 6)
}
