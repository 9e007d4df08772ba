package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/runner"
	"github.com/hupe1980/taskmesh/session"
)

type rootFlags struct {
	task         string
	sessionID    string
	maxSteps     int
	maxTokens    int
	logDir       string
	logLevel     string
	enqueue      string
	runQueue     bool
	listSessions bool
	listQueue    bool
	clearQueue   bool
	schedule     string
	configPath   string
	system       string
	provider     string
	model        string
	verbose      bool
}

func newRootCmd(d deps) *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "taskmesh",
		Short: "Multi-agent task runner",
		Long: `taskmesh hands a task to a coordinator of specialist agents. The
coordinator either routes the task to the best agent or splits it into
subtasks and merges the results. Agents can ask each other for help.

Sessions keep conversation history between runs. Tasks can be queued and
drained later, once or on a cron schedule.`,
		Example: `  taskmesh --task "Write a Go function that reverses a string"
  taskmesh --system news --task "Produce today's AI briefing"
  taskmesh --enqueue "Summarize the release notes" --session-id notes
  taskmesh --run-queue
  taskmesh --run-queue --schedule "0 7 * * *"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, d, f)
		},
	}

	cmd.SetOut(d.stdout)
	cmd.SetErr(d.stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.task, "task", "", "Task for the agents to solve")
	fl.StringVar(&f.sessionID, "session-id", session.DefaultSessionID, "Session ID for conversation history")
	fl.IntVar(&f.maxSteps, "max-steps", 10, "Step budget per agent run")
	fl.IntVar(&f.maxTokens, "max-tokens", runner.DefaultMaxContextTokens, "Approximate token budget for session history")
	fl.StringVar(&f.logDir, "log-dir", "", "Directory for daily JSON log files")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fl.StringVar(&f.enqueue, "enqueue", "", "Add a task to the queue instead of running it")
	fl.BoolVar(&f.runQueue, "run-queue", false, "Run all pending tasks in the queue")
	fl.BoolVar(&f.listSessions, "list-sessions", false, "List stored sessions")
	fl.BoolVar(&f.listQueue, "list-queue", false, "List queued tasks")
	fl.BoolVar(&f.clearQueue, "clear-queue", false, "Remove all queued tasks")
	fl.StringVar(&f.schedule, "schedule", "", "Cron expression; repeat --task or --run-queue on this schedule until interrupted")
	fl.StringVar(&f.configPath, "config", "", "Config file (default: user and project taskmesh.yaml)")
	fl.StringVar(&f.system, "system", "general", "Agent system to use (general, news)")
	fl.StringVar(&f.provider, "provider", "openai", "Model provider (openai, anthropic, gemini)")
	fl.StringVar(&f.model, "model", "", "Model name (provider default when empty)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Trace model, tool and handoff events")

	return cmd
}

// execute runs cmd and reports a failure once on its error stream. Cobra's
// own error printing is silenced.
func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		printStatus(cmd.ErrOrStderr(), failMark, err.Error())
	}
	return err
}

func run(cmd *cobra.Command, d deps, f *rootFlags) error {
	if !f.hasAction() {
		return cmd.Help()
	}
	if f.schedule != "" {
		if err := runner.ValidateSpec(f.schedule); err != nil {
			return err
		}
	}

	cfg, err := config.Load(func(o *config.Options) {
		o.Path = f.configPath
		o.Flags = cmd.Flags()
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg, d, f.verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case f.listSessions:
		store, err := a.sessions()
		if err != nil {
			return err
		}
		infos, err := store.List(ctx)
		if err != nil {
			return err
		}
		printSessions(out, infos)
		return nil

	case f.listQueue:
		q := a.queue()
		printQueue(out, q.List(), q.Stats())
		return nil

	case f.clearQueue:
		n, err := a.queue().Clear()
		if err != nil {
			return err
		}
		printStatus(out, okMark, fmt.Sprintf("Queue cleared (%d tasks removed)", n))
		return nil

	case f.enqueue != "":
		task, err := a.queue().Add(f.enqueue, f.sessionID)
		if err != nil {
			return err
		}
		printStatus(out, okMark, fmt.Sprintf("Queued task %s in session %s", shortID(task.ID), task.SessionID))
		return nil
	}

	r, err := a.runner(ctx)
	if err != nil {
		return err
	}

	if f.schedule != "" {
		return runScheduled(cmd, a, r, f)
	}

	if f.runQueue {
		report, err := r.RunQueue(ctx, a.queue())
		if err != nil {
			return err
		}
		printStatus(out, okMark, fmt.Sprintf("Queue drained: %d completed, %d failed", report.Completed, report.Failed))
		return nil
	}

	res, err := r.Run(ctx, f.sessionID, f.task)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Answer)
	return nil
}

func (f *rootFlags) hasAction() bool {
	return f.task != "" || f.enqueue != "" || f.runQueue || f.listSessions || f.listQueue || f.clearQueue
}

func runScheduled(cmd *cobra.Command, a *app, r *runner.Runner, f *rootFlags) error {
	ctx := cmd.Context()

	var job runner.Job
	switch {
	case f.runQueue:
		job = r.QueueJob(a.queue())
	case f.task != "":
		job = r.TaskJob(f.sessionID, f.task)
	default:
		return errors.New("--schedule needs --task or --run-queue")
	}

	s := runner.NewScheduler(func(o *runner.SchedulerOptions) { o.Logger = logging.WithComponent(a.logger, "scheduler") })
	if err := s.Add("taskmesh", f.schedule, job); err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), infoMark, fmt.Sprintf("Scheduled on %q, press Ctrl+C to stop", f.schedule))
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return nil
}
