// Package gemini provides a model.Model implementation backed by the Google
// Gen AI SDK (Gemini API backend) with function calling support.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	APIKey      string // falls back to GEMINI_API_KEY / GOOGLE_API_KEY
	BaseURL     string
}

// Model wraps client.Models.GenerateContent behind model.Model.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini API client and wraps it.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// Generate implements model.Model with a single non-streaming call.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		result, err := m.client.Models.GenerateContent(ctx, m.opts.Model, buildContents(req.Messages), m.buildConfig(req))
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		resp, err := convertResponse(result)
		if err != nil {
			errCh <- err
			return
		}

		model.Send(ctx, out, resp)
	}()

	return out, errCh
}

func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(m.opts.Temperature),
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			system = append(system, msg.Content)
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertSchema(t.Parameters),
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}

		if req.ToolChoice == model.ToolChoiceAuto {
			cfg.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
			}
		}
	}

	return cfg
}

// buildContents maps messages to Gemini contents. System messages go to
// SystemInstruction; tool results are sent as user text.
func buildContents(msgs []core.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		if msg.Content == "" {
			continue
		}

		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}

	return contents
}

func convertResponse(result *genai.GenerateContentResponse) (model.Response, error) {
	resp := model.Response{FinishReason: "stop"}

	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			if p == nil {
				continue
			}
			if p.Text != "" && !p.Thought {
				text.WriteString(p.Text)
			}
			if fc := p.FunctionCall; fc != nil {
				args, err := json.Marshal(fc.Args)
				if err != nil {
					return model.Response{}, fmt.Errorf("encode gemini function args: %w", err)
				}
				id := fc.ID
				if id == "" {
					id = core.NewID()
				}
				resp.ToolCalls = append(resp.ToolCalls, core.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
			}
		}
		resp.Text = text.String()

		if fr := result.Candidates[0].FinishReason; fr != "" {
			resp.FinishReason = strings.ToLower(string(fr))
		}
	}

	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = "tool_calls"
	}

	if u := result.UsageMetadata; u != nil {
		resp.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return resp, nil
}

// convertSchema translates a JSON Schema map into the SDK's Schema type.
func convertSchema(s map[string]any) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{}

	if t, ok := s["type"].(string); ok {
		out.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := s["description"].(string); ok {
		out.Description = d
	}
	if enum, ok := s["enum"].([]any); ok {
		for _, e := range enum {
			out.Enum = append(out.Enum, fmt.Sprint(e))
		}
	}
	if props, ok := s["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				out.Properties[name] = convertSchema(pm)
			}
		}
	}
	if items, ok := s["items"].(map[string]any); ok {
		out.Items = convertSchema(items)
	}

	out.Required = util.RequiredFields(s)

	return out
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
