package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}).
		WithComponent("agent").
		WithSession("s1", "r1")

	l.Debug("hidden")
	l.Info("agent.run.start", "agent", "Coder")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "agent.run.start", entry["msg"])
	assert.Equal(t, "agent", entry["component"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "Coder", entry["agent"])
}

func TestStructuredLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "text", Output: &buf})

	l.LogToolCall("rag", time.Millisecond, false, errors.New("boom"))
	l.LogRun("Coder", 2, time.Second, true, nil)
	l.LogLLMCall("gpt", 42, time.Millisecond, true, nil)

	out := buf.String()
	assert.Contains(t, out, "msg=tool.failed")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "msg=agent.run.completed")
	assert.Contains(t, out, "steps=2")
	assert.Contains(t, out, "msg=model.call.completed")
	assert.Contains(t, out, "tokens=42")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "console", Output: &buf})
	l.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	f, err := OpenLogFile(dir, now)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, filepath.Join(dir, "taskmesh-2025-03-04.log"), f.Name())

	_, err = os.Stat(f.Name())
	require.NoError(t, err)
}

type recordingLogger struct{ msgs []string }

func (r *recordingLogger) Debug(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }

func TestTeeAndOrNoOp(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	tee := Tee{a, b}
	tee.Info("x")
	tee.Error("y")

	assert.Equal(t, []string{"x", "y"}, a.msgs)
	assert.Equal(t, []string{"x", "y"}, b.msgs)

	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	assert.Same(t, a, OrNoOp(a))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestScopeHelpers(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		var buf bytes.Buffer
		var l Logger = NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

		l = WithComponent(l, "runner")
		l = WithSession(l, "s1", "r1")
		WithContext(l, "task_id", "t1").Info("runner.queue.task")

		entry := decodeLines(t, &buf)[0]
		assert.Equal(t, "runner", entry["component"])
		assert.Equal(t, "s1", entry["session_id"])
		assert.Equal(t, "r1", entry["run_id"])
		assert.Equal(t, "t1", entry["task_id"])
	})

	t.Run("slog adapter", func(t *testing.T) {
		var buf bytes.Buffer
		l := WithComponent(NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil))), "queue")
		l.Info("queue.task.added")

		assert.Equal(t, "queue", decodeLines(t, &buf)[0]["component"])
	})

	t.Run("tee", func(t *testing.T) {
		var buf bytes.Buffer
		rec := &recordingLogger{}
		l := WithComponent(Tee{NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}), rec}, "agent")
		l.Info("agent.run.start")

		assert.Equal(t, "agent", decodeLines(t, &buf)[0]["component"])
		assert.Equal(t, []string{"agent.run.start"}, rec.msgs)
	})

	t.Run("plain loggers pass through", func(t *testing.T) {
		rec := &recordingLogger{}
		assert.Same(t, rec, WithSession(rec, "s", "r"))
		assert.IsType(t, NoOpLogger{}, WithComponent(nil, "x"))
	})
}

func TestMetricsHelpers(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		rec := &recordingLogger{}
		LogToolCall(rec, "rag", time.Millisecond, true, nil)
		LogToolCall(rec, "rag", time.Millisecond, false, errors.New("boom"))
		LogLLMCall(rec, "gpt", 10, time.Millisecond, true, nil)
		LogRun(rec, "Coder", 3, time.Second, true, nil)

		assert.Equal(t, []string{"tool.executed", "tool.failed", "model.call.completed", "agent.run.completed"}, rec.msgs)
	})

	t.Run("tee reaches structured and plain", func(t *testing.T) {
		var buf bytes.Buffer
		rec := &recordingLogger{}
		tee := Tee{NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}), rec}

		LogRun(tee, "Coder", 2, time.Second, false, errors.New("boom"))

		entry := decodeLines(t, &buf)[0]
		assert.Equal(t, "agent.run.failed", entry["msg"])
		assert.Equal(t, "boom", entry["error"])
		assert.Equal(t, []string{"agent.run.failed"}, rec.msgs)
	})
}

func TestStartTimer(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	done := StartTimer(l, "scheduler.job.complete", "job", "drain")
	done()

	entry := decodeLines(t, &buf)[0]
	assert.Equal(t, "scheduler.job.complete", entry["msg"])
	assert.Equal(t, "drain", entry["job"])
	assert.Contains(t, entry, "duration_ms")
}

func TestNewLogger_Defaults(t *testing.T) {
	l := NewLogger(nil)
	require.NotNil(t, l)
	assert.Equal(t, "json", DefaultLoggerConfig().Format)
}
