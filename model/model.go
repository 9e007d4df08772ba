package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// ToolChoiceAuto lets the model decide whether to call tools.
const ToolChoiceAuto = "auto"

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input.
type Request struct {
	Messages   []core.Message   `json:"messages"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"` // only "auto" is used today
	Stream     bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. A final
// response carries either tool calls or free text (possibly both empty).
type Response struct {
	ID           string          `json:"id,omitempty"`
	Partial      bool            `json:"partial"`
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// HasToolCalls reports whether the response requests any tool invocation.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents and the coordinator to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned by Complete when a model closes its stream
// without emitting a final response.
var ErrNoResponse = errors.New("model returned no response")

// Complete drains a Generate call and returns the final (non-partial)
// response. Partial chunks are ignored; the first error wins.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		found bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				continue
			}
			final, found = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !found {
		return Response{}, ErrNoResponse
	}

	return final, nil
}

// Ask is a single-shot helper: it sends prompt as the only user message,
// without tools, and returns the trimmed text answer.
func Ask(ctx context.Context, m Model, prompt string) (string, error) {
	resp, err := Complete(ctx, m, Request{Messages: []core.Message{core.UserMessage(prompt)}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// Send delivers r on out unless ctx is done first. Adapters use it so a
// producer goroutine never outlives a caller that stopped reading.
func Send(ctx context.Context, out chan<- Response, r Response) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// MockModel is a scripted in-memory Model useful for tests and examples.
// Responses are served in order; once the script is exhausted the fallback
// (if any) answers, otherwise an error is returned. Every request is
// recorded for later inspection.
type MockModel struct {
	info     Info
	mu       sync.Mutex
	script   []MockTurn
	fallback func(Request) (Response, error)
	requests []Request
}

// MockTurn is one scripted reply.
type MockTurn struct {
	Response Response
	Err      error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// AddText scripts a free-text reply.
func (m *MockModel) AddText(text string) *MockModel {
	return m.Add(MockTurn{Response: Response{Text: text, FinishReason: "stop"}})
}

// AddToolCalls scripts a reply requesting the given tool calls.
func (m *MockModel) AddToolCalls(calls ...core.ToolCall) *MockModel {
	return m.Add(MockTurn{Response: Response{ToolCalls: calls, FinishReason: "tool_calls"}})
}

// AddError scripts a failing generation call.
func (m *MockModel) AddError(err error) *MockModel {
	return m.Add(MockTurn{Err: err})
}

// Add appends raw scripted turns.
func (m *MockModel) Add(turns ...MockTurn) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, turns...)

	return m
}

// SetFallback installs a responder used once the script is exhausted.
func (m *MockModel) SetFallback(fn func(Request) (Response, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = fn

	return m
}

// Calls returns the number of Generate calls made so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

func (m *MockModel) next(req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = core.CloneMessages(req.Messages)
	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		turn := m.script[0]
		m.script = m.script[1:]
		return turn.Response, turn.Err
	}

	if m.fallback != nil {
		return m.fallback(req)
	}

	return Response{}, fmt.Errorf("mock model %q: script exhausted after %d calls", m.info.Name, len(m.requests)-1)
}

// Generate implements Model. Streaming requests receive the text one rune
// at a time as partial chunks before the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		resp, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			for _, r := range resp.Text {
				if !Send(ctx, respCh, Response{Partial: true, Text: string(r)}) {
					errCh <- ctx.Err()
					return
				}
			}
		}

		resp.Partial = false

		if !Send(ctx, respCh, resp) {
			errCh <- ctx.Err()
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
