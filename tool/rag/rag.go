// Package rag provides a retrieval tool over a memory.VectorStore.
//
// The tool exposes two actions to the model: "build" indexes a batch of
// documents and "query" returns the most similar documents as context for
// the model's next step. Both actions are non-terminal; outcomes the model
// should react to (empty knowledge base, missing question) are reported as
// ordinary tool output.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/tool"
)

// Name is the tool name exposed to models.
const Name = "rag"

// DefaultTopK is the maximum number of documents returned by a query.
const DefaultTopK = 3

// Document is a build input item.
type Document struct {
	Content string `json:"content" jsonschema:"description=Document text"`
	Source  string `json:"source,omitempty" jsonschema:"description=Where the document came from"`
}

// Args are the arguments accepted by the tool.
type Args struct {
	Action    string     `json:"action" jsonschema:"enum=build,enum=query,description=build indexes documents; query searches the knowledge base"`
	Documents []Document `json:"documents,omitempty" jsonschema:"description=Documents to index (build only)"`
	Question  string     `json:"question,omitempty" jsonschema:"description=Question to search for (query only)"`
}

// Options configure the tool.
type Options struct {
	TopK   int
	Logger logging.Logger
}

// New returns the rag tool backed by store.
func New(store *memory.VectorStore, optFns ...func(o *Options)) tool.Tool {
	opts := Options{TopK: DefaultTopK}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	r := &retriever{store: store, topK: opts.TopK}

	return tool.NewFunctionToolFromStruct(
		Name,
		"Answer questions from a knowledge base. "+
			"Use action \"build\" with documents [{content, source}] to index text, "+
			"then action \"query\" with a question to retrieve relevant context.",
		Args{},
		r.execute,
		func(o *tool.FunctionOptions) { o.Logger = logging.OrNoOp(opts.Logger) },
	)
}

type retriever struct {
	store *memory.VectorStore
	topK  int
}

func (r *retriever) execute(ctx context.Context, raw map[string]any) (string, error) {
	var args Args
	if err := tool.DecodeArgs(raw, &args); err != nil {
		return "", err
	}

	switch args.Action {
	case "build":
		return r.build(ctx, args.Documents)
	case "query":
		return r.query(ctx, args.Question)
	default:
		return fmt.Sprintf("Unknown action: %s. Use 'build' or 'query'.", args.Action), nil
	}
}

func (r *retriever) build(ctx context.Context, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "No documents provided", nil
	}
	batch := make([]memory.Document, len(docs))
	for i, d := range docs {
		batch[i] = memory.Document{Content: d.Content, Source: d.Source}
	}
	n, err := r.store.Add(ctx, batch)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Indexed %d documents", n), nil
}

func (r *retriever) query(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "No question provided", nil
	}
	if r.store.Len() == 0 {
		return "Knowledge base is empty. Please build it first.", nil
	}

	results, err := r.store.Search(ctx, question, r.topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant documents found", nil
	}

	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = fmt.Sprintf("[%s] (similarity: %.4f)\n%s", res.Source, res.Score, res.Content)
	}
	return "Relevant context:\n\n" + strings.Join(parts, "\n\n---\n\n"), nil
}
