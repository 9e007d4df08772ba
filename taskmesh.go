// Package taskmesh assembles ready-to-run multi-agent systems.
//
// A system is a coordinator.Coordinator with a fixed roster of specialist
// agents and their tools:
//
//   - NewGeneralSystem: Coder, Searcher and Analyzer, each able to finish
//     with terminate and to consult a shared rag knowledge base.
//   - NewNewsSystem: Fetcher, Filter, Summarizer and Reporter, one per
//     stage of the RSS briefing pipeline.
//
// Any agent can ask another for help through request_help; the coordinator
// routes those requests and guards against handoff loops.
package taskmesh

import (
	"fmt"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/callback"
	"github.com/hupe1980/taskmesh/coordinator"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
	"github.com/hupe1980/taskmesh/tool/rag"
	"github.com/hupe1980/taskmesh/tool/rss"
)

// Options configure the preset systems.
type Options struct {
	// MaxSteps is the per-agent step budget.
	MaxSteps int
	// MaxHandoffDepth bounds request_help chains.
	MaxHandoffDepth int
	// SystemPrompt overrides the agents' system prompt template.
	SystemPrompt string
	// Stream requests streaming generation from the model.
	Stream bool

	// Knowledge backs the general system's rag tool. Defaults to an
	// in-memory store with a HashEmbedder.
	Knowledge *memory.VectorStore

	// RSS configures the news system's tools.
	RSS []func(o *rss.Options)

	Logger    logging.Logger
	Callbacks *callback.Manager
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{
		MaxSteps:        agent.DefaultMaxSteps,
		MaxHandoffDepth: coordinator.DefaultMaxHandoffDepth,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

func (o Options) agentOptions(opts *agent.Options) {
	opts.MaxSteps = o.MaxSteps
	opts.Stream = o.Stream
	opts.Logger = logging.WithComponent(o.Logger, "agent")
	opts.Callbacks = o.Callbacks
	if o.SystemPrompt != "" {
		opts.SystemPrompt = o.SystemPrompt
	}
}

func (o Options) newCoordinator(llm model.Model) *coordinator.Coordinator {
	return coordinator.New(llm, func(c *coordinator.Options) {
		c.MaxHandoffDepth = o.MaxHandoffDepth
		c.Logger = logging.WithComponent(o.Logger, "coordinator")
		c.Callbacks = o.Callbacks
	})
}

// GeneralSpecs are the agents of the general system, in selection order.
var GeneralSpecs = []agent.Spec{
	{
		Name:        "Coder",
		Specialty:   "programming",
		Description: "Writes, debugs and optimizes code. Always returns complete, runnable code.",
	},
	{
		Name:        "Searcher",
		Specialty:   "information retrieval",
		Description: "Looks up facts and reference material, using the knowledge base when it helps.",
	},
	{
		Name:        "Analyzer",
		Specialty:   "analysis and summarization",
		Description: "Analyzes problems, summarizes content and compares alternatives in a structured way.",
	},
}

// NewsSpecs are the agents of the news system, in pipeline order.
var NewsSpecs = []agent.Spec{
	{Name: "Fetcher", Specialty: "RSS fetching", Description: "Fetches the article list from the subscribed RSS feeds."},
	{Name: "Filter", Specialty: "content filtering", Description: "Keeps only the articles about AI and agents."},
	{Name: "Summarizer", Specialty: "summary writing", Description: "Writes a short summary for each article."},
	{Name: "Reporter", Specialty: "report generation", Description: "Produces the daily news briefing."},
}

// NewGeneralSystem returns a coordinator with the Coder, Searcher and
// Analyzer agents, all sharing llm.
func NewGeneralSystem(llm model.Model, optFns ...func(o *Options)) (*coordinator.Coordinator, error) {
	opts := buildOptions(optFns)

	store := opts.Knowledge
	if store == nil {
		var err error
		store, err = memory.NewVectorStore(memory.NewHashEmbedder(0), func(m *memory.Options) { m.Logger = opts.Logger })
		if err != nil {
			return nil, err
		}
	}
	knowledge := rag.New(store, func(r *rag.Options) { r.Logger = opts.Logger })

	c := opts.newCoordinator(llm)
	for _, spec := range GeneralSpecs {
		tools := tool.NewRegistry(tool.NewTerminateTool(), knowledge)
		c.Register(agent.New(spec, llm, tools, opts.agentOptions))
	}
	return c, nil
}

// NewNewsSystem returns a coordinator with the Fetcher, Filter, Summarizer
// and Reporter agents. Every agent sees the full rss tool set so a stage can
// recover when routing sends it work meant for a neighbour.
func NewNewsSystem(llm model.Model, optFns ...func(o *Options)) (*coordinator.Coordinator, error) {
	opts := buildOptions(optFns)

	rssOpts := append([]func(o *rss.Options){func(r *rss.Options) { r.Logger = opts.Logger }}, opts.RSS...)
	tools := rss.Tools(rssOpts...)

	c := opts.newCoordinator(llm)
	for _, spec := range NewsSpecs {
		c.Register(agent.New(spec, llm, tool.NewRegistry(tools...), opts.agentOptions))
	}
	return c, nil
}

// NewSystem builds the preset named name ("general" or "news").
func NewSystem(name string, llm model.Model, optFns ...func(o *Options)) (*coordinator.Coordinator, error) {
	switch name {
	case "", "general":
		return NewGeneralSystem(llm, optFns...)
	case "news":
		return NewNewsSystem(llm, optFns...)
	default:
		return nil, &UnknownSystemError{Name: name}
	}
}

// UnknownSystemError reports an unsupported preset name.
type UnknownSystemError struct{ Name string }

func (e *UnknownSystemError) Error() string {
	return fmt.Sprintf("taskmesh: unknown system %q", e.Name)
}
