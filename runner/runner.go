package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/session"
)

// Defaults for Options.
const (
	DefaultMaxContextTokens = 4000
	DefaultHistoryWindow    = 100
)

// Target answers a task given prior conversation. Both *agent.Agent and
// *coordinator.Coordinator satisfy it.
type Target interface {
	Run(ctx context.Context, task string, prior []core.Message) (string, error)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, task string, prior []core.Message) (string, error)

// Run calls f.
func (f TargetFunc) Run(ctx context.Context, task string, prior []core.Message) (string, error) {
	return f(ctx, task, prior)
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Store persists session history. Defaults to an in-memory store.
	Store session.Store
	// MaxContextTokens bounds the estimated size of the prior history passed
	// to the target. Zero or less disables trimming.
	MaxContextTokens int
	// HistoryWindow is the number of most recent messages loaded per run.
	HistoryWindow int
	Logger        logging.Logger
}

// Result describes a completed run.
type Result struct {
	RunID        string
	SessionID    string
	Answer       string
	PriorCount   int
	PriorDropped int
	Duration     time.Duration
}

// Runner binds a Target to session history. Safe for concurrent use when
// the Target and Store are.
type Runner struct {
	target Target
	opts   Options
}

// New constructs a Runner with optional overrides.
func New(target Target, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxContextTokens: DefaultMaxContextTokens,
		HistoryWindow:    DefaultHistoryWindow,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runner{target: target, opts: opts}
}

// Store returns the session store in use.
func (r *Runner) Store() session.Store { return r.opts.Store }

// Run executes task within the session. The task and the final answer are
// appended to the session only when the run succeeds.
func (r *Runner) Run(ctx context.Context, sessionID, task string) (*Result, error) {
	if sessionID == "" {
		sessionID = session.DefaultSessionID
	}
	runID := core.NewID()
	start := time.Now()
	logger := logging.WithSession(r.opts.Logger, sessionID, runID)

	history, err := r.opts.Store.Recent(ctx, sessionID, r.opts.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}
	history = core.WithoutRole(history, core.RoleSystem)
	prior := TrimToBudget(history, r.opts.MaxContextTokens)

	logger.Info("runner.run.start",
		"prior", len(prior),
		"dropped", len(history)-len(prior),
	)

	answer, err := r.target.Run(ctx, task, prior)
	if err != nil {
		logger.Error("runner.run.failed", "error", err.Error())
		return nil, err
	}

	for _, msg := range []core.Message{core.UserMessage(task), core.AssistantMessage(answer)} {
		if err := r.opts.Store.Append(ctx, sessionID, msg); err != nil {
			return nil, fmt.Errorf("persist session history: %w", err)
		}
	}

	res := &Result{
		RunID:        runID,
		SessionID:    sessionID,
		Answer:       answer,
		PriorCount:   len(prior),
		PriorDropped: len(history) - len(prior),
		Duration:     time.Since(start),
	}
	logger.Info("runner.run.complete", "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// QueueReport summarizes a RunQueue pass.
type QueueReport struct {
	Completed int
	Failed    int
}

// RunQueue pops pending tasks until none remain. A failing task is marked
// failed and the loop moves on; only queue persistence errors and context
// cancellation stop it early.
func (r *Runner) RunQueue(ctx context.Context, q *queue.Queue) (QueueReport, error) {
	var report QueueReport
	logger := r.opts.Logger
	logger.Info("runner.queue.start", "pending", q.Stats().Pending)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		task, ok, err := q.Pop()
		if err != nil {
			return report, err
		}
		if !ok {
			break
		}

		logging.WithContext(logger, "task_id", task.ID).Info("runner.queue.task", "session_id", task.SessionID)

		if _, runErr := r.Run(ctx, task.SessionID, task.Task); runErr != nil {
			report.Failed++
			if err := q.Fail(task.ID, runErr); err != nil {
				return report, err
			}
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				return report, runErr
			}
			continue
		}

		report.Completed++
		if err := q.Complete(task.ID); err != nil {
			return report, err
		}
	}

	logger.Info("runner.queue.complete", "completed", report.Completed, "failed", report.Failed)
	return report, nil
}

// EstimateTokens approximates the token count of msgs at four runes per token.
func EstimateTokens(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimate(m)
	}
	return total
}

func estimate(m core.Message) int {
	return (utf8.RuneCountInString(m.Content) + 3) / 4
}

// TrimToBudget drops the oldest messages until the estimate fits maxTokens.
// A non-positive budget returns msgs unchanged.
func TrimToBudget(msgs []core.Message, maxTokens int) []core.Message {
	if maxTokens <= 0 {
		return msgs
	}
	total := EstimateTokens(msgs)
	start := 0
	for start < len(msgs) && total > maxTokens {
		total -= estimate(msgs[start])
		start++
	}
	return msgs[start:]
}
