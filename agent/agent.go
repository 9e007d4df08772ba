package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/callback"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// DefaultMaxSteps is the step budget used when Options.MaxSteps is unset.
const DefaultMaxSteps = 10

// Options configures an Agent.
//
// Use functional options with New to override defaults.
type Options struct {
	// MaxSteps bounds the number of generation calls per run.
	MaxSteps int

	// ReportToolErrors feeds argument parse failures, unknown tools and tool
	// execution errors back to the model as tool messages instead of
	// failing the run.
	ReportToolErrors bool

	// SystemPrompt overrides DefaultSystemPrompt (text/template).
	SystemPrompt string

	// Stream requests streaming generation from the model.
	Stream bool

	Logger    logging.Logger
	Callbacks *callback.Manager
}

// Agent runs the tool-calling loop for one specialty.
type Agent struct {
	spec      Spec
	llm       model.Model
	tools     *tool.Registry
	handoffer Handoffer
	opts      Options
}

// Output is the detailed outcome of a run.
type Output struct {
	Answer   string
	Steps    int
	Messages []core.Message // final conversation, including tool records
}

// New creates an agent. tools may be nil for an agent without tools.
//
//	coder := agent.New(agent.Spec{Name: "Coder", Specialty: "code"}, llm, registry,
//	    func(o *agent.Options) { o.MaxSteps = 5 })
func New(spec Spec, llm model.Model, tools *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxSteps:     DefaultMaxSteps,
		SystemPrompt: DefaultSystemPrompt,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps < 1 {
		opts.MaxSteps = DefaultMaxSteps
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if tools == nil {
		tools = tool.NewRegistry()
	}

	return &Agent{
		spec:  spec,
		llm:   llm,
		tools: tools,
		opts:  opts,
	}
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.spec.Name }

// Spec returns the agent's spec.
func (a *Agent) Spec() Spec { return a.spec }

// MaxSteps returns the configured step budget.
func (a *Agent) MaxSteps() int { return a.opts.MaxSteps }

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// AttachHandoffer connects the agent to the hub that mediates request_help.
// Call it during set-up, before the first run.
func (a *Agent) AttachHandoffer(h Handoffer) { a.handoffer = h }

// Run executes the loop and returns the final answer.
func (a *Agent) Run(ctx context.Context, task string, prior []core.Message) (string, error) {
	out, err := a.Execute(ctx, task, prior)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Execute executes the loop and returns the detailed outcome. On failure
// the returned Output still holds the conversation built so far.
func (a *Agent) Execute(ctx context.Context, task string, prior []core.Message) (*Output, error) {
	start := time.Now()

	conv, err := a.initialConversation(task, prior)
	if err != nil {
		return &Output{}, &RunError{Agent: a.spec.Name, Err: err}
	}

	run := &run{
		agent:  a,
		conv:   conv,
		budget: core.NewStepBudget(a.opts.MaxSteps),
		defs:   a.catalog(),
	}

	a.opts.Logger.Info("agent.run.start", "agent", a.spec.Name, "max_steps", a.opts.MaxSteps, "prior", len(prior))

	answer, err := run.loop(ctx)

	out := &Output{Answer: answer, Steps: run.budget.Count(), Messages: run.conv}

	logging.LogRun(a.opts.Logger, a.spec.Name, out.Steps, time.Since(start), err == nil, err)

	if err != nil {
		_ = a.opts.Callbacks.Execute(ctx, &callback.Context{Type: callback.OnError, Agent: a.spec.Name, Step: out.Steps, Err: err})
		return out, err
	}

	return out, nil
}

func (a *Agent) initialConversation(task string, prior []core.Message) ([]core.Message, error) {
	_, hasTerminate := a.tools.Lookup(tool.TerminateName)

	system, err := renderSystemPrompt(a.opts.SystemPrompt, promptData{
		Name:           a.spec.Name,
		Specialty:      a.spec.Specialty,
		Description:    a.spec.Description,
		CanRequestHelp: a.handoffer != nil,
		HasTerminate:   hasTerminate,
	})
	if err != nil {
		return nil, err
	}

	conv := make([]core.Message, 0, len(prior)+2)
	conv = append(conv, core.SystemMessage(system))
	conv = append(conv, prior...)
	conv = append(conv, core.UserMessage(task))

	return conv, nil
}

// catalog lists the registry tools plus request_help when a hub is attached.
func (a *Agent) catalog() []model.ToolDefinition {
	defs := a.tools.Definitions()

	if a.handoffer == nil {
		return defs
	}

	var names []string
	if l, ok := a.handoffer.(agentLister); ok {
		for _, n := range l.AgentNames() {
			if n != a.spec.Name {
				names = append(names, n)
			}
		}
	}

	return append(defs, tool.RequestHelpDefinition(names))
}

// run holds the state of one invocation of the loop.
type run struct {
	agent  *Agent
	conv   []core.Message
	budget *core.StepBudget
	defs   []model.ToolDefinition
}

func (r *run) loop(ctx context.Context) (string, error) {
	a := r.agent

	for {
		step, err := r.budget.Next()
		if err != nil {
			return "", r.fail(step, "", fmt.Errorf("%w: %w", ErrStepBudgetExceeded, err))
		}

		if err := ctx.Err(); err != nil {
			return "", r.fail(step, "", err)
		}

		resp, err := r.generate(ctx, step)
		if err != nil {
			return "", r.fail(step, "", err)
		}

		if resp.HasToolCalls() {
			answer, done, err := r.dispatch(ctx, step, resp.ToolCalls)
			if err != nil {
				return "", err
			}
			if done {
				return answer, nil
			}
			continue
		}

		if text := strings.TrimSpace(resp.Text); text != "" {
			a.opts.Logger.Debug("agent.answer.text", "agent", a.spec.Name, "step", step)
			return text, nil
		}

		a.opts.Logger.Warn("agent.step.empty", "agent", a.spec.Name, "step", step)
	}
}

func (r *run) generate(ctx context.Context, step int) (model.Response, error) {
	a := r.agent

	req := model.Request{
		Messages:   core.CloneMessages(r.conv),
		Tools:      r.defs,
		ToolChoice: model.ToolChoiceAuto,
		Stream:     a.opts.Stream,
	}

	if err := a.opts.Callbacks.Execute(ctx, &callback.Context{Type: callback.BeforeModel, Agent: a.spec.Name, Step: step, Request: &req}); err != nil {
		return model.Response{}, err
	}

	start := time.Now()

	resp, err := model.Complete(ctx, a.llm, req)

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logging.LogLLMCall(a.opts.Logger, a.llm.Info().Name, tokens, time.Since(start), err == nil, err)

	if err != nil {
		return model.Response{}, fmt.Errorf("generate: %w", err)
	}

	a.opts.Logger.Debug("agent.model.response",
		"agent", a.spec.Name,
		"step", step,
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := a.opts.Callbacks.Execute(ctx, &callback.Context{Type: callback.AfterModel, Agent: a.spec.Name, Step: step, Response: &resp}); err != nil {
		return model.Response{}, err
	}

	return resp, nil
}

// dispatch processes a batch of tool calls in order. done reports whether a
// terminal result ended the run.
func (r *run) dispatch(ctx context.Context, step int, calls []core.ToolCall) (answer string, done bool, err error) {
	a := r.agent

	for i := range calls {
		call := calls[i]

		args, perr := parseArguments(call.Arguments)
		if perr != nil {
			if a.opts.ReportToolErrors {
				r.conv = append(r.conv, core.ToolMessage(formatToolFailure(call.Name, call.Arguments, perr)))
				continue
			}
			return "", false, r.fail(step, call.Name, perr)
		}

		if call.Name == tool.RequestHelpName && a.handoffer != nil {
			if err := r.requestHelp(ctx, call, args); err != nil {
				return "", false, r.fail(step, call.Name, err)
			}
			continue
		}

		t, ok := a.tools.Lookup(call.Name)
		if !ok {
			uerr := fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
			if a.opts.ReportToolErrors {
				r.conv = append(r.conv, core.ToolMessage(formatToolFailure(call.Name, call.Arguments, uerr)))
				continue
			}
			return "", false, r.fail(step, call.Name, uerr)
		}

		if err := a.opts.Callbacks.Execute(ctx, &callback.Context{Type: callback.BeforeTool, Agent: a.spec.Name, Step: step, ToolCall: &call}); err != nil {
			return "", false, r.fail(step, call.Name, err)
		}

		start := time.Now()
		res, xerr := safeExecute(ctx, t, args)

		logging.LogToolCall(a.opts.Logger, call.Name, time.Since(start), xerr == nil, xerr)
		a.opts.Logger.Debug("agent.tool.result", "agent", a.spec.Name, "tool", call.Name, "step", step, "terminal", res.Terminal)

		if xerr != nil {
			if a.opts.ReportToolErrors {
				r.conv = append(r.conv, core.ToolMessage(formatToolFailure(call.Name, call.Arguments, xerr)))
				continue
			}
			return "", false, r.fail(step, call.Name, xerr)
		}

		r.conv = append(r.conv, core.ToolMessage(formatToolRecord(call.Name, compactArgs(call.Arguments), res.Output)))

		if err := a.opts.Callbacks.Execute(ctx, &callback.Context{Type: callback.AfterTool, Agent: a.spec.Name, Step: step, ToolCall: &call, Result: &res}); err != nil {
			return "", false, r.fail(step, call.Name, err)
		}

		if res.Terminal {
			if skipped := len(calls) - i - 1; skipped > 0 {
				a.opts.Logger.Debug("agent.tool.batch_cut", "agent", a.spec.Name, "step", step, "skipped", skipped)
			}
			return res.Output, true, nil
		}
	}

	return "", false, nil
}

// requestHelp hands a subtask to the coordinator and records its answer.
// Invalid payloads are reported to the model rather than failing the run.
func (r *run) requestHelp(ctx context.Context, call core.ToolCall, args map[string]any) error {
	a := r.agent

	req, err := tool.ParseHelpRequest(args)
	if err != nil {
		r.conv = append(r.conv, core.ToolMessage(formatToolFailure(call.Name, call.Arguments, err)))
		return nil
	}

	a.opts.Logger.Info("agent.handoff.request", "agent", a.spec.Name, "to", req.Agent)

	result, err := a.handoffer.Handoff(ctx, a.spec.Name, req.Agent, req.Task, core.CloneMessages(r.conv))
	if err != nil {
		return fmt.Errorf("handoff to %s: %w", req.Agent, err)
	}

	r.conv = append(r.conv, core.ToolMessage(formatToolRecord(call.Name, compactArgs(call.Arguments), result)))

	return nil
}

func (r *run) fail(step int, toolName string, err error) error {
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.Agent == r.agent.spec.Name {
		return err
	}
	return &RunError{Agent: r.agent.spec.Name, Step: step, Tool: toolName, Err: err}
}

// parseArguments decodes a tool call payload. An empty payload is an empty object.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgumentParse, err)
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// compactArgs normalizes whitespace in a JSON payload for the tool record.
func compactArgs(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "{}"
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	b, err := json.Marshal(v)
	if err != nil {
		return raw
	}

	return string(b)
}

// safeExecute runs a tool and converts panics into errors.
func safeExecute(ctx context.Context, t tool.Tool, args map[string]any) (res tool.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = tool.Result{}
			err = panicError(rec)
		}
	}()

	return t.Execute(ctx, args)
}
