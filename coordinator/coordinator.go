package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/callback"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

// DefaultMaxHandoffDepth bounds nested request_help chains.
const DefaultMaxHandoffDepth = 3

// ErrNoAgents is returned when routing is attempted on an empty coordinator.
var ErrNoAgents = errors.New("coordinator: no agents registered")

// Options configures a Coordinator.
type Options struct {
	// Decide classifies the decision response (default MarkerDecision).
	Decide DecisionFunc

	// Select picks an agent from the selection response (default SubstringSelect).
	Select SelectFunc

	// MaxHandoffDepth bounds request_help chains (default 3).
	MaxHandoffDepth int

	// Prompt templates (text/template); empty means the default.
	DecisionPrompt  string
	DecomposePrompt string
	SelectPrompt    string
	MergePrompt     string

	Logger    logging.Logger
	Callbacks *callback.Manager
}

// SubtaskResult records one routed subtask.
type SubtaskResult struct {
	Task   string `json:"task"`
	Agent  string `json:"agent"`
	Result string `json:"result"`
}

// Outcome is the detailed result of a dispatch.
type Outcome struct {
	Answer     string
	Decomposed bool
	Subtasks   []SubtaskResult
}

// Coordinator owns the registered agents and mediates all cross-agent calls.
// It may be reused across tasks; registrations should happen before the
// first dispatch.
type Coordinator struct {
	llm  model.Model
	opts Options

	mu     sync.RWMutex
	agents map[string]*agent.Agent
	order  []string
}

// New creates a coordinator that uses llm for its routing calls.
func New(llm model.Model, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Decide:          MarkerDecision,
		Select:          SubstringSelect,
		MaxHandoffDepth: DefaultMaxHandoffDepth,
		DecisionPrompt:  DefaultDecisionPrompt,
		DecomposePrompt: DefaultDecomposePrompt,
		SelectPrompt:    DefaultSelectPrompt,
		MergePrompt:     DefaultMergePrompt,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Decide == nil {
		opts.Decide = MarkerDecision
	}
	if opts.Select == nil {
		opts.Select = SubstringSelect
	}
	if opts.MaxHandoffDepth < 1 {
		opts.MaxHandoffDepth = DefaultMaxHandoffDepth
	}
	if opts.DecisionPrompt == "" {
		opts.DecisionPrompt = DefaultDecisionPrompt
	}
	if opts.DecomposePrompt == "" {
		opts.DecomposePrompt = DefaultDecomposePrompt
	}
	if opts.SelectPrompt == "" {
		opts.SelectPrompt = DefaultSelectPrompt
	}
	if opts.MergePrompt == "" {
		opts.MergePrompt = DefaultMergePrompt
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Coordinator{
		llm:    llm,
		opts:   opts,
		agents: make(map[string]*agent.Agent),
	}
}

// Register adds agents and attaches the coordinator as their Handoffer.
// Registering an existing name replaces that agent silently while keeping
// its original position in the selection order.
func (c *Coordinator) Register(agents ...*agent.Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range agents {
		if _, exists := c.agents[a.Name()]; !exists {
			c.order = append(c.order, a.Name())
		} else {
			c.opts.Logger.Warn("coordinator.register.replaced", "agent", a.Name())
		}

		c.agents[a.Name()] = a
		a.AttachHandoffer(c)

		c.opts.Logger.Info("coordinator.register", "agent", a.Name(), "specialty", a.Spec().Specialty)
	}
}

// Agent returns the agent registered under name.
func (c *Coordinator) Agent(name string) (*agent.Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.agents[name]

	return a, ok
}

// AgentNames returns the registered names in registration order.
func (c *Coordinator) AgentNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)

	return out
}

// Agents returns the registered agents in registration order.
func (c *Coordinator) Agents() []*agent.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*agent.Agent, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.agents[n])
	}

	return out
}

// Dispatch runs task end to end and returns the final answer.
func (c *Coordinator) Dispatch(ctx context.Context, task string) (string, error) {
	out, err := c.Execute(ctx, task, nil)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Run is Execute reduced to the final answer. It lets a Coordinator stand in
// wherever a single agent is expected.
func (c *Coordinator) Run(ctx context.Context, task string, prior []core.Message) (string, error) {
	out, err := c.Execute(ctx, task, prior)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Execute runs task with optional prior conversation (for example session
// history) and reports how it was handled.
func (c *Coordinator) Execute(ctx context.Context, task string, prior []core.Message) (*Outcome, error) {
	if len(c.AgentNames()) == 0 {
		return nil, ErrNoAgents
	}

	start := time.Now()
	c.opts.Logger.Info("coordinator.dispatch.start", "task_chars", len(task))

	decompose, err := c.NeedsDecomposition(ctx, task)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	if decompose {
		out, err = c.dispatchDecomposed(ctx, task, prior)
	} else {
		out, err = c.dispatchDirect(ctx, task, prior)
	}
	if err != nil {
		c.opts.Logger.Error("coordinator.dispatch.failed", "decomposed", decompose, "error", err.Error())
		return nil, err
	}

	c.opts.Logger.Info("coordinator.dispatch.complete",
		"decomposed", out.Decomposed,
		"subtasks", len(out.Subtasks),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

func (c *Coordinator) dispatchDirect(ctx context.Context, task string, prior []core.Message) (*Outcome, error) {
	a, err := c.SelectAgent(ctx, task)
	if err != nil {
		return nil, err
	}

	c.opts.Logger.Info("coordinator.dispatch.direct", "agent", a.Name())

	answer, err := a.Run(ctx, task, prior)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Answer:   answer,
		Subtasks: []SubtaskResult{{Task: task, Agent: a.Name(), Result: answer}},
	}, nil
}

func (c *Coordinator) dispatchDecomposed(ctx context.Context, task string, prior []core.Message) (*Outcome, error) {
	subtasks, err := c.Decompose(ctx, task)
	if err != nil {
		return nil, err
	}

	c.opts.Logger.Info("coordinator.decompose", "subtasks", len(subtasks))

	results := make([]SubtaskResult, 0, len(subtasks))

	for i, sub := range subtasks {
		a, err := c.SelectAgent(ctx, sub)
		if err != nil {
			return nil, err
		}

		c.opts.Logger.Info("coordinator.subtask.start", "index", i+1, "total", len(subtasks), "agent", a.Name())

		res, err := a.Run(ctx, sub, prior)
		if err != nil {
			return nil, fmt.Errorf("subtask %d: %w", i+1, err)
		}

		results = append(results, SubtaskResult{Task: sub, Agent: a.Name(), Result: res})
	}

	answer, err := c.Merge(ctx, task, results)
	if err != nil {
		return nil, err
	}

	return &Outcome{Answer: answer, Decomposed: true, Subtasks: results}, nil
}

// NeedsDecomposition asks the single-shot decision question.
func (c *Coordinator) NeedsDecomposition(ctx context.Context, task string) (bool, error) {
	resp, err := c.ask(ctx, c.opts.DecisionPrompt, promptData{Task: task, Agents: c.agentInfos()})
	if err != nil {
		return false, fmt.Errorf("decomposition decision: %w", err)
	}

	decompose := c.opts.Decide(resp)
	c.opts.Logger.Debug("coordinator.decision", "decompose", decompose)

	return decompose, nil
}

// Decompose enumerates subtasks. It never returns an empty list: an
// unusable answer yields the original task.
func (c *Coordinator) Decompose(ctx context.Context, task string) ([]string, error) {
	resp, err := c.ask(ctx, c.opts.DecomposePrompt, promptData{Task: task, Agents: c.agentInfos()})
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	subtasks := ParseSubtasks(resp)
	if len(subtasks) == 0 {
		return []string{task}, nil
	}

	return subtasks, nil
}

// SelectAgent asks the model for the best agent and falls back to the
// first registered one when no name can be matched.
func (c *Coordinator) SelectAgent(ctx context.Context, task string) (*agent.Agent, error) {
	names := c.AgentNames()
	if len(names) == 0 {
		return nil, ErrNoAgents
	}

	resp, err := c.ask(ctx, c.opts.SelectPrompt, promptData{Task: task, Agents: c.agentInfos()})
	if err != nil {
		return nil, fmt.Errorf("select agent: %w", err)
	}

	name, ok := c.opts.Select(resp, names)
	a, found := c.Agent(name)
	if !ok || !found {
		c.opts.Logger.Debug("coordinator.select.fallback", "agent", names[0])
		a, _ = c.Agent(names[0])
	}

	return a, nil
}

// Merge combines subtask results. One result is returned verbatim without
// a model call; more are synthesized by exactly one call.
func (c *Coordinator) Merge(ctx context.Context, task string, results []SubtaskResult) (string, error) {
	switch len(results) {
	case 0:
		return "", nil
	case 1:
		return results[0].Result, nil
	}

	resp, err := c.ask(ctx, c.opts.MergePrompt, promptData{Task: task, Results: FormatResults(results)})
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}

	return resp, nil
}

// FormatResults renders labeled subtask sections in order.
func FormatResults(results []SubtaskResult) string {
	sections := make([]string, len(results))
	for i, r := range results {
		sections[i] = fmt.Sprintf("## Subtask %d: %s\n(completed by %s)\n\n%s", i+1, r.Task, r.Agent, r.Result)
	}
	return strings.Join(sections, "\n\n")
}

func (c *Coordinator) ask(ctx context.Context, tmpl string, data promptData) (string, error) {
	prompt, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return "", err
	}
	return model.Ask(ctx, c.llm, prompt)
}

func (c *Coordinator) agentInfos() []agentInfo {
	agents := c.Agents()
	out := make([]agentInfo, len(agents))
	for i, a := range agents {
		out[i] = agentInfo{Name: a.Name(), Specialty: a.Spec().Specialty}
	}
	return out
}
