package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

func TestConvertSchema(t *testing.T) {
	s := convertSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": []any{"build", "query"}},
			"documents": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
		"required": []any{"action"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"action"}, s.Required)
	require.Contains(t, s.Properties, "action")
	assert.Equal(t, genai.TypeString, s.Properties["action"].Type)
	assert.Equal(t, []string{"build", "query"}, s.Properties["action"].Enum)
	assert.Equal(t, genai.TypeArray, s.Properties["documents"].Type)
	assert.Equal(t, genai.TypeObject, s.Properties["documents"].Items.Type)
}

func TestBuildContents(t *testing.T) {
	contents := buildContents([]core.Message{
		core.SystemMessage("sys"),
		core.UserMessage("task"),
		core.AssistantMessage("answer"),
		core.ToolMessage("[TOOL_RESULT] ok"),
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
}

func TestConvertResponse_FunctionCall(t *testing.T) {
	resp, err := convertResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: "terminate", Args: map[string]any{"output": "X"}}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "terminate", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"output":"X"}`, resp.ToolCalls[0].Arguments)
	assert.NotEmpty(t, resp.ToolCalls[0].ID)
	assert.Equal(t, "tool_calls", resp.FinishReason)
}

func TestGenerate_Text(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "hello"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 1, "totalTokenCount": 4}
		}`))
	}))
	defer srv.Close()

	m, err := NewModel(context.Background(), func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	require.NoError(t, err)

	resp, err := model.Complete(context.Background(), m, model.Request{
		Messages: []core.Message{core.SystemMessage("sys"), core.UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
	assert.Equal(t, "gemini", m.Info().Provider)
}
