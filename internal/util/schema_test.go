package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Search query"`
	Limit int    `json:"limit,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(searchArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "query")
	require.Contains(t, props, "limit")

	query := props["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])

	assert.Equal(t, []string{"query"}, RequiredFields(schema))
}

func TestCreateSchema_NonStruct(t *testing.T) {
	assert.Equal(t, EmptyObjectSchema(), CreateSchema("nope"))
	assert.Equal(t, EmptyObjectSchema(), CreateSchema(42))
	assert.Equal(t, EmptyObjectSchema(), CreateSchema(nil))
	assert.Equal(t, EmptyObjectSchema(), CreateSchema([]string{"a"}))
}

func TestCreateSchema_StructPointer(t *testing.T) {
	schema := CreateSchema(&searchArgs{})
	assert.Equal(t, "object", schema["type"])
	assert.NotEmpty(t, schema["properties"])
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(searchArgs{})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"query": "go", "limit": float64(3)}, schema))
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"limit": float64(3)}, schema)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "query", verr.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"query": 42}, schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected type string")
	})

	t.Run("non integer float", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"query": "x", "limit": 1.5}, schema)
		require.Error(t, err)
	})

	t.Run("string required list", func(t *testing.T) {
		s := map[string]any{"type": "object", "required": []string{"a"}}
		require.Error(t, ValidateParameters(map[string]any{}, s))
	})
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate("{{range $i, $a := .Items}}{{inc $i}}. {{$a}}\n{{end}}", map[string]any{"Items": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "1. a\n2. b\n", out)

	_, err = RenderTemplate("{{.Broken", nil)
	require.Error(t, err)
}
