package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// SchedulerOptions configure a Scheduler.
type SchedulerOptions struct {
	Location *time.Location
	// StopTimeout bounds how long Stop waits for running jobs.
	StopTimeout time.Duration
	Logger      logging.Logger
}

// Scheduler runs jobs on cron expressions. Expressions take five fields with
// an optional leading seconds field, or descriptors such as "@every 1h".
// A job still running when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	opts   SchedulerOptions
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewScheduler creates a stopped Scheduler.
func NewScheduler(optFns ...func(o *SchedulerOptions)) *Scheduler {
	opts := SchedulerOptions{Location: time.Local, StopTimeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	cl := cronLogger{opts.Logger}
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(opts.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: c, opts: opts, ctx: ctx, cancel: cancel}
}

// ValidateSpec reports whether spec is a valid schedule expression.
func ValidateSpec(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name on spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := ValidateSpec(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		logger := logging.WithContext(s.opts.Logger, "job", name)
		done := logging.StartTimer(logger, "scheduler.job.complete")
		logger.Info("scheduler.job.start")
		if err := job(ctx); err != nil {
			logger.Error("scheduler.job.failed", "error", err.Error())
			return
		}
		done()
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start begins firing jobs in the background. Cancelling ctx stops the
// scheduler as Stop would.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.cron.Start()
	s.opts.Logger.Info("scheduler.started", "jobs", s.Len())

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
}

// Stop halts scheduling, cancels the job context and waits for running jobs
// up to StopTimeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	cancel()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.opts.StopTimeout):
		s.opts.Logger.Warn("scheduler.stop.timeout")
	}
}

// QueueJob returns a Job draining q through r.
func (r *Runner) QueueJob(q *queue.Queue) Job {
	return func(ctx context.Context) error {
		_, err := r.RunQueue(ctx, q)
		return err
	}
}

// TaskJob returns a Job running a fixed task in a session.
func (r *Runner) TaskJob(sessionID, task string) Job {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx, sessionID, task)
		return err
	}
}

// cronLogger routes cron's internal logging through logging.Logger.
type cronLogger struct{ l logging.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("scheduler.cron."+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("scheduler.cron."+msg, append(keysAndValues, "error", err.Error())...)
}
