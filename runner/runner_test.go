package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/tool"
)

// echoTarget answers with the task and records the prior it received.
type echoTarget struct {
	priors [][]core.Message
	fail   map[string]error
}

func (e *echoTarget) Run(_ context.Context, task string, prior []core.Message) (string, error) {
	e.priors = append(e.priors, prior)
	if err, ok := e.fail[task]; ok {
		return "", err
	}
	return "answer: " + task, nil
}

func TestRunner_PersistsTaskAndAnswer(t *testing.T) {
	ctx := context.Background()
	store := session.NewInMemoryStore()
	target := &echoTarget{}
	r := New(target, func(o *Options) { o.Store = store })

	res, err := r.Run(ctx, "s1", "first")
	require.NoError(t, err)
	assert.Equal(t, "answer: first", res.Answer)
	assert.Equal(t, "s1", res.SessionID)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, target.priors[0])

	_, err = r.Run(ctx, "s1", "second")
	require.NoError(t, err)
	assert.Equal(t, []core.Message{
		core.UserMessage("first"),
		core.AssistantMessage("answer: first"),
	}, target.priors[1])

	all, err := store.All(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRunner_LogsCarrySessionAndRun(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json", Output: &buf})
	r := New(&echoTarget{}, func(o *Options) { o.Logger = logger })

	res, err := r.Run(context.Background(), "s1", "task")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, "s1", entry["session_id"], entry["msg"])
		assert.Equal(t, res.RunID, entry["run_id"], entry["msg"])
	}
}

func TestRunner_DefaultSession(t *testing.T) {
	r := New(&echoTarget{})
	res, err := r.Run(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, session.DefaultSessionID, res.SessionID)

	n, err := r.Store().Count(context.Background(), session.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunner_FailureDoesNotPersist(t *testing.T) {
	boom := errors.New("boom")
	r := New(&echoTarget{fail: map[string]error{"bad": boom}})

	_, err := r.Run(context.Background(), "s", "bad")
	assert.ErrorIs(t, err, boom)

	n, err := r.Store().Count(context.Background(), "s")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunner_SystemMessagesNeverPassed(t *testing.T) {
	ctx := context.Background()
	store := session.NewInMemoryStore()
	require.NoError(t, store.Append(ctx, "s", core.SystemMessage("stale instructions")))
	require.NoError(t, store.Append(ctx, "s", core.UserMessage("hi")))

	target := &echoTarget{}
	_, err := New(target, func(o *Options) { o.Store = store }).Run(ctx, "s", "next")
	require.NoError(t, err)
	assert.Equal(t, []core.Message{core.UserMessage("hi")}, target.priors[0])
}

func TestRunner_TrimsHistoryToBudget(t *testing.T) {
	ctx := context.Background()
	store := session.NewInMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s", core.UserMessage(strings.Repeat("x", 40))))
	}

	target := &echoTarget{}
	r := New(target, func(o *Options) {
		o.Store = store
		o.MaxContextTokens = 25
	})
	res, err := r.Run(ctx, "s", "task")
	require.NoError(t, err)
	assert.Len(t, target.priors[0], 2)
	assert.Equal(t, 2, res.PriorCount)
	assert.Equal(t, 3, res.PriorDropped)
}

func TestTrimToBudget(t *testing.T) {
	msgs := []core.Message{
		core.UserMessage("aaaaaaaa"),  // 2
		core.AssistantMessage("bbbb"), // 1
		core.UserMessage("cccccccc"),  // 2
	}
	assert.Equal(t, 5, EstimateTokens(msgs))
	assert.Len(t, TrimToBudget(msgs, 5), 3)
	assert.Equal(t, msgs[1:], TrimToBudget(msgs, 3))
	assert.Equal(t, msgs[2:], TrimToBudget(msgs, 2))
	assert.Empty(t, TrimToBudget(msgs, 1))
	assert.Len(t, TrimToBudget(msgs, 0), 3)
	assert.Equal(t, 1, EstimateTokens([]core.Message{core.UserMessage("日本")}))
}

func TestRunner_WithAgent(t *testing.T) {
	ctx := context.Background()
	llm := model.NewMockModel("m").
		AddToolCalls(core.ToolCall{Name: tool.TerminateName, Arguments: `{"answer":"42"}`})

	a := agent.New(agent.Spec{Name: "Solver", Specialty: "math"}, llm, tool.NewRegistry(tool.NewTerminateTool()))
	r := New(a)

	res, err := r.Run(ctx, "s", "what is six times seven")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer)
}

func TestRunQueue_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	q := queue.Open(filepath.Join(t.TempDir(), "queue.json"))
	for _, task := range []string{"one", "bad", "three"} {
		_, err := q.Add(task, "s")
		require.NoError(t, err)
	}

	r := New(&echoTarget{fail: map[string]error{"bad": errors.New("nope")}})
	report, err := r.RunQueue(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, QueueReport{Completed: 2, Failed: 1}, report)

	tasks := q.List()
	assert.Equal(t, queue.StatusCompleted, tasks[0].Status)
	assert.Equal(t, queue.StatusFailed, tasks[1].Status)
	assert.Equal(t, "nope", tasks[1].Error)
	assert.Equal(t, queue.StatusCompleted, tasks[2].Status)
	assert.False(t, q.HasPending())
}

func TestRunQueue_Cancelled(t *testing.T) {
	q := queue.Open(filepath.Join(t.TempDir(), "queue.json"))
	_, err := q.Add("one", "s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(&echoTarget{}).RunQueue(ctx, q)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, q.HasPending())
}

func TestScheduler_ValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("*/5 * * * *"))
	assert.NoError(t, ValidateSpec("0 */5 * * * *"))
	assert.NoError(t, ValidateSpec("@every 1h"))
	assert.Error(t, ValidateSpec("not a schedule"))

	s := NewScheduler()
	assert.Error(t, s.Add("bad", "nope", func(context.Context) error { return nil }))
	assert.Zero(t, s.Len())
}

func TestScheduler_RunsJob(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(func(o *SchedulerOptions) { o.StopTimeout = time.Second })
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		calls.Add(1)
		return errors.New("logged, not fatal")
	}))
	assert.Equal(t, 1, s.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunner_QueueJob(t *testing.T) {
	q := queue.Open(filepath.Join(t.TempDir(), "queue.json"))
	_, err := q.Add("one", "s")
	require.NoError(t, err)

	r := New(&echoTarget{})
	require.NoError(t, r.QueueJob(q)(context.Background()))
	assert.Equal(t, 1, q.Stats().Completed)

	require.NoError(t, r.TaskJob("s", "fixed")(context.Background()))
	n, err := r.Store().Count(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
