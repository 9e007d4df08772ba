package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/taskmesh"
	"github.com/hupe1980/taskmesh/callback"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/coordinator"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/memory"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/model/anthropic"
	"github.com/hupe1980/taskmesh/model/gemini"
	"github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/runner"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/tool/rss"
)

// ModelFactory creates the language model for a configuration.
type ModelFactory func(ctx context.Context, cfg *config.Config) (model.Model, error)

type deps struct {
	newModel ModelFactory
	stdout   io.Writer
	stderr   io.Writer
	now      func() time.Time
}

func defaultDeps() deps {
	return deps{newModel: newProviderModel, stdout: os.Stdout, stderr: os.Stderr, now: time.Now}
}

// newProviderModel builds the boundary adapter for cfg.Provider.
func newProviderModel(ctx context.Context, cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Model
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey()
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Model)
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey()
			o.BaseURL = cfg.BaseURL
		}), nil
	case "gemini":
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			o.Model = cfg.Model
			o.Temperature = float32(cfg.Temperature)
			o.APIKey = cfg.APIKey()
			o.BaseURL = cfg.BaseURL
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// app holds the resources of one command invocation.
type app struct {
	cfg     *config.Config
	deps    deps
	logger  logging.Logger
	verbose bool
	closers []io.Closer
}

func newApp(cfg *config.Config, d deps, verbose bool) (*app, error) {
	a := &app{cfg: cfg, deps: d, verbose: verbose}

	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = logging.LogLevelDebug
	}
	console := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    d.stderr,
		Component: "taskmesh",
	})
	a.logger = console

	if cfg.LogDir != "" {
		f, err := logging.OpenLogFile(cfg.LogDir, d.now())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f)
		file := logging.NewLogger(&logging.LoggerConfig{
			Level:     logging.LogLevelDebug,
			Format:    "json",
			Output:    f,
			Component: "taskmesh",
		})
		a.logger = logging.Tee{console, file}
	}
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (a *app) queue() *queue.Queue {
	return queue.Open(a.cfg.QueueFile, func(o *queue.Options) { o.Logger = logging.WithComponent(a.logger, "queue") })
}

func (a *app) sessions() (*session.SQLiteStore, error) {
	store, err := session.NewSQLiteStore(a.cfg.SessionDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func (a *app) system(ctx context.Context) (*coordinator.Coordinator, error) {
	llm, err := a.deps.newModel(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	var callbacks *callback.Manager
	if a.verbose {
		callbacks = callback.NewManager(callback.NewLoggingCallbacks(a.logger)...)
	}

	opts := func(o *taskmesh.Options) {
		o.MaxSteps = a.cfg.MaxSteps
		o.MaxHandoffDepth = a.cfg.MaxHandoffDepth
		o.SystemPrompt = a.cfg.SystemPrompt
		o.Logger = a.logger
		o.Callbacks = callbacks
	}

	switch a.cfg.System {
	case "news":
		fetcher := rss.NewFetcher(func(o *rss.FetcherOptions) {
			o.Workers = a.cfg.RSS.Workers
			o.Logger = logging.WithComponent(a.logger, "rss")
		})
		return taskmesh.NewNewsSystem(llm, opts, func(o *taskmesh.Options) {
			o.RSS = append(o.RSS, func(r *rss.Options) {
				r.OPMLPath = a.cfg.RSS.OPML
				r.Fetcher = fetcher
				r.MaxFeeds = a.cfg.RSS.MaxFeeds
				r.MaxItems = a.cfg.RSS.MaxItems
			})
		})
	default:
		knowledge, err := a.knowledge()
		if err != nil {
			return nil, err
		}
		return taskmesh.NewGeneralSystem(llm, opts, func(o *taskmesh.Options) { o.Knowledge = knowledge })
	}
}

func (a *app) knowledge() (*memory.VectorStore, error) {
	var embedder memory.Embedder
	switch a.cfg.RAG.Embedder {
	case "hash":
		embedder = memory.NewHashEmbedder(0)
	default:
		embedder = memory.NewOpenAIEmbedder(func(o *memory.OpenAIEmbedderOptions) {
			o.APIKey = a.cfg.Keys.OpenAI
			if a.cfg.Provider == "openai" {
				o.BaseURL = a.cfg.BaseURL
			}
		})
	}
	return memory.NewVectorStore(embedder, func(o *memory.Options) {
		o.Path = a.cfg.RAG.IndexPath
		o.Logger = logging.WithComponent(a.logger, "memory")
	})
}

func (a *app) runner(ctx context.Context) (*runner.Runner, error) {
	system, err := a.system(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.sessions()
	if err != nil {
		return nil, err
	}
	return runner.New(system, func(o *runner.Options) {
		o.Store = store
		o.MaxContextTokens = a.cfg.MaxTokens
		o.Logger = logging.WithComponent(a.logger, "runner")
	}), nil
}
