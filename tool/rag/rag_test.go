package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/tool"
)

func newTool(t *testing.T) (tool.Tool, *memory.VectorStore) {
	t.Helper()
	store, err := memory.NewVectorStore(memory.NewHashEmbedder(128))
	require.NoError(t, err)
	return New(store), store
}

func docs(items ...[2]string) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{"content": it[0], "source": it[1]}
	}
	return out
}

func TestRAG_Schema(t *testing.T) {
	rt, _ := newTool(t)
	assert.Equal(t, Name, rt.Name())

	params := rt.Parameters()
	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "action")
	assert.Contains(t, props, "documents")
	assert.Contains(t, props, "question")
	assert.ElementsMatch(t, []any{"action"}, params["required"])
}

func TestRAG_BuildAndQuery(t *testing.T) {
	ctx := context.Background()
	rt, store := newTool(t)

	res, err := rt.Execute(ctx, map[string]any{
		"action": "build",
		"documents": docs(
			[2]string{"Go channels coordinate goroutines", "go-doc"},
			[2]string{"Sourdough bread needs a starter", "baking"},
			[2]string{"Python lists are dynamic arrays", "py-doc"},
			[2]string{"Tulips bloom in spring", "garden"},
		),
	})
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	assert.Equal(t, "Indexed 4 documents", res.Output)
	assert.Equal(t, 4, store.Len())

	res, err = rt.Execute(ctx, map[string]any{"action": "query", "question": "goroutines and channels"})
	require.NoError(t, err)
	assert.False(t, res.Terminal)
	require.True(t, strings.HasPrefix(res.Output, "Relevant context:\n\n[go-doc] (similarity: "))
	assert.Equal(t, 3, strings.Count(res.Output, "(similarity: "))
	assert.Equal(t, 2, strings.Count(res.Output, "\n\n---\n\n"))
}

func TestRAG_TopKClampedToIndexSize(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTool(t)
	_, err := rt.Execute(ctx, map[string]any{"action": "build", "documents": docs([2]string{"only doc", ""})})
	require.NoError(t, err)

	res, err := rt.Execute(ctx, map[string]any{"action": "query", "question": "doc"})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(res.Output, "(similarity: "))
	assert.Contains(t, res.Output, "[doc_0]")
	assert.NotContains(t, res.Output, "---")
}

func TestRAG_Messages(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTool(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no documents", map[string]any{"action": "build"}, "No documents provided"},
		{"empty kb", map[string]any{"action": "query", "question": "q"}, "Knowledge base is empty. Please build it first."},
		{"no question", map[string]any{"action": "query"}, "No question provided"},
		{"unknown action", map[string]any{"action": "delete"}, "Unknown action: delete. Use 'build' or 'query'."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rt.Execute(ctx, tt.args)
			require.NoError(t, err)
			assert.False(t, res.Terminal)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestRAG_MissingAction(t *testing.T) {
	rt, _ := newTool(t)
	_, err := rt.Execute(context.Background(), map[string]any{})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestRAG_EmbedderFailure(t *testing.T) {
	boom := errors.New("embedding service down")
	store, err := memory.NewVectorStore(memory.EmbedderFunc(func(context.Context, []string) ([][]float64, error) {
		return nil, boom
	}))
	require.NoError(t, err)

	_, err = New(store).Execute(context.Background(), map[string]any{
		"action":    "build",
		"documents": docs([2]string{"x", "y"}),
	})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
}
