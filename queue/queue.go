package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Status is the lifecycle state of a queued task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrTaskNotFound is returned when an id does not match any queued task.
var ErrTaskNotFound = errors.New("queue: task not found")

// Task is a queued unit of work.
type Task struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats counts tasks per status.
type Stats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Total returns the number of tasks across all states.
func (s Stats) Total() int { return s.Pending + s.Running + s.Completed + s.Failed }

// Options configures a Queue.
type Options struct {
	Logger logging.Logger
}

// Queue is a JSON-file backed task list. It is safe for concurrent use within
// a process.
type Queue struct {
	path   string
	mu     sync.Mutex
	tasks  []Task
	logger logging.Logger
	now    func() time.Time
}

// Open loads the queue stored at path. A missing or corrupt file yields an
// empty queue; the corruption is logged and the file is overwritten on the
// next mutation.
func Open(path string, optFns ...func(o *Options)) *Queue {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	q := &Queue{
		path:   path,
		logger: logging.OrNoOp(opts.Logger),
		now:    time.Now,
	}
	if err := q.load(); err != nil {
		q.logger.Warn("queue.load.failed", "path", path, "error", err.Error())
		q.tasks = nil
	}
	return q
}

// Path returns the backing file location.
func (q *Queue) Path() string { return q.path }

// Add appends a pending task and returns it.
func (q *Queue) Add(task, sessionID string) (Task, error) {
	if sessionID == "" {
		sessionID = "default"
	}
	now := q.now()
	t := Task{
		ID:        core.NewID(),
		Task:      task,
		SessionID: sessionID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.commit(append(slices.Clone(q.tasks), t)); err != nil {
		return Task{}, err
	}
	q.logger.Info("queue.task.added", "id", t.ID, "session_id", sessionID, "size", len(q.tasks))
	return t, nil
}

// Pop marks the oldest pending task as running and returns it. The boolean
// is false when nothing is pending.
func (q *Queue) Pop() (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tasks {
		if q.tasks[i].Status != StatusPending {
			continue
		}
		next := slices.Clone(q.tasks)
		next[i].Status = StatusRunning
		next[i].UpdatedAt = q.now()
		if err := q.commit(next); err != nil {
			return Task{}, false, err
		}
		return next[i], true, nil
	}
	return Task{}, false, nil
}

// Complete marks the task as completed.
func (q *Queue) Complete(id string) error {
	return q.transition(id, StatusCompleted, "")
}

// Fail marks the task as failed and records the cause.
func (q *Queue) Fail(id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return q.transition(id, StatusFailed, msg)
}

func (q *Queue) transition(id string, status Status, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tasks {
		if q.tasks[i].ID != id {
			continue
		}
		next := slices.Clone(q.tasks)
		next[i].Status = status
		next[i].Error = errMsg
		next[i].UpdatedAt = q.now()
		if err := q.commit(next); err != nil {
			return err
		}
		if status == StatusFailed {
			q.logger.Warn("queue.task.failed", "id", id, "error", errMsg)
		} else {
			q.logger.Info("queue.task."+string(status), "id", id)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// HasPending reports whether at least one task awaits execution.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.ContainsFunc(q.tasks, func(t Task) bool { return t.Status == StatusPending })
}

// List returns a snapshot of all tasks in queue order.
func (q *Queue) List() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.tasks)
}

// Clear removes tasks. Without arguments every task is removed; otherwise
// only tasks in one of the given states are. It returns the number removed.
func (q *Queue) Clear(statuses ...Status) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var next []Task
	if len(statuses) > 0 {
		next = slices.DeleteFunc(slices.Clone(q.tasks), func(t Task) bool {
			return slices.Contains(statuses, t.Status)
		})
	}
	removed := len(q.tasks) - len(next)
	if err := q.commit(next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats counts the tasks per status.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s Stats
	for _, t := range q.tasks {
		switch t.Status {
		case StatusPending, "":
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

func (q *Queue) load() error {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &q.tasks)
}

// commit persists tasks and makes them the queue's state only once the
// write succeeded. The caller must hold the lock.
func (q *Queue) commit(tasks []Task) error {
	if err := q.save(tasks); err != nil {
		return err
	}
	q.tasks = tasks
	return nil
}

func (q *Queue) save(tasks []Task) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := os.WriteFile(q.path, data, 0o644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	return nil
}
