package tool

import "context"

// TerminateName is the name of the built-in terminate tool.
const TerminateName = "terminate"

type terminateTool struct{}

// NewTerminateTool returns the built-in tool that ends a run with the given answer.
func NewTerminateTool() Tool { return terminateTool{} }

func (terminateTool) Name() string { return TerminateName }

func (terminateTool) Description() string {
	return "Finish the task. Call this with the complete final answer once the work is done."
}

func (terminateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string", "description": "The final answer for the user"},
		},
		"required": []string{"answer"},
	}
}

func (terminateTool) Execute(_ context.Context, args map[string]any) (Result, error) {
	return Final(StringArg(args, "answer")), nil
}
