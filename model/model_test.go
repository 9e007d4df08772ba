package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestComplete_ScriptedOrder(t *testing.T) {
	m := NewMockModel("mock").
		AddToolCalls(core.ToolCall{Name: "search", Arguments: `{"q":"go"}`}).
		AddText("done")

	ctx := context.Background()

	first, err := Complete(ctx, m, Request{Messages: []core.Message{core.UserMessage("hi")}})
	require.NoError(t, err)
	require.True(t, first.HasToolCalls())
	assert.Equal(t, "search", first.ToolCalls[0].Name)

	second, err := Complete(ctx, m, Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", second.Text)
	assert.False(t, second.HasToolCalls())

	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, "hi", m.Requests()[0].Messages[0].Content)
}

func TestComplete_Streaming(t *testing.T) {
	m := NewMockModel("mock").AddText("héllo")

	resp, err := Complete(context.Background(), m, Request{Stream: true})
	require.NoError(t, err)
	assert.Equal(t, "héllo", resp.Text)
	assert.False(t, resp.Partial)
}

func TestComplete_Error(t *testing.T) {
	boom := errors.New("network down")
	m := NewMockModel("mock").AddError(boom)

	_, err := Complete(context.Background(), m, Request{})
	require.ErrorIs(t, err, boom)
}

func TestComplete_ScriptExhausted(t *testing.T) {
	m := NewMockModel("mock")

	_, err := Complete(context.Background(), m, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted")
}

func TestComplete_Fallback(t *testing.T) {
	m := NewMockModel("mock").SetFallback(func(req Request) (Response, error) {
		return Response{Text: "echo: " + req.Messages[len(req.Messages)-1].Content}, nil
	})

	out, err := Ask(context.Background(), m, "ping")
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", out)
}

type silentModel struct{}

func (silentModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response)
	errCh := make(chan error)
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (silentModel) Info() Info { return Info{Name: "silent"} }

func TestComplete_NoResponse(t *testing.T) {
	_, err := Complete(context.Background(), silentModel{}, Request{})
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestComplete_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockModel("mock").AddText("late")
	_, err := Complete(ctx, m, Request{})
	require.Error(t, err)
}

func TestSend(t *testing.T) {
	out := make(chan Response, 1)
	assert.True(t, Send(context.Background(), out, Response{Text: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Send(ctx, out, Response{Text: "b"}), "full channel and done context")
	assert.Equal(t, "a", (<-out).Text)
}
