package logging

import "time"

// MetricsLogger is implemented by loggers with dedicated records for tool
// calls, model calls and agent runs. StructuredLogger and Tee implement it.
type MetricsLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
	LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error)
	LogRun(agent string, steps int, dur time.Duration, success bool, err error)
}

var (
	_ MetricsLogger = (*StructuredLogger)(nil)
	_ MetricsLogger = Tee(nil)
)

// WithComponent returns l tagged with a component name. Loggers that cannot
// carry attributes are returned unchanged.
func WithComponent(l Logger, component string) Logger {
	return scope(l, func(s *StructuredLogger) Logger { return s.WithComponent(component) }, "component", component)
}

// WithSession returns l tagged with session and run identifiers.
func WithSession(l Logger, sessionID, runID string) Logger {
	return scope(l, func(s *StructuredLogger) Logger { return s.WithSession(sessionID, runID) }, "session_id", sessionID, "run_id", runID)
}

// WithContext returns l with one extra attribute on every entry.
func WithContext(l Logger, key string, value any) Logger {
	return scope(l, func(s *StructuredLogger) Logger { return s.WithContext(key, value) }, key, value)
}

func scope(l Logger, structured func(*StructuredLogger) Logger, args ...any) Logger {
	switch v := l.(type) {
	case *StructuredLogger:
		return structured(v)
	case *SlogAdapter:
		return NewSlogAdapter(v.Logger.With(args...))
	case Tee:
		out := make(Tee, len(v))
		for i, inner := range v {
			out[i] = scope(inner, structured, args...)
		}
		return out
	default:
		return OrNoOp(l)
	}
}

// LogToolCall records a tool execution on l. Loggers without MetricsLogger
// get an equivalent plain entry.
func LogToolCall(l Logger, tool string, dur time.Duration, success bool, err error) {
	if m, ok := l.(MetricsLogger); ok {
		m.LogToolCall(tool, dur, success, err)
		return
	}
	plain(l, "tool.executed", "tool.failed", success, err, "tool", tool, "duration_ms", dur.Milliseconds())
}

// LogLLMCall records a model call on l.
func LogLLMCall(l Logger, model string, tokens int, dur time.Duration, success bool, err error) {
	if m, ok := l.(MetricsLogger); ok {
		m.LogLLMCall(model, tokens, dur, success, err)
		return
	}
	plain(l, "model.call.completed", "model.call.failed", success, err, "model", model, "tokens", tokens, "duration_ms", dur.Milliseconds())
}

// LogRun records an agent run on l.
func LogRun(l Logger, agent string, steps int, dur time.Duration, success bool, err error) {
	if m, ok := l.(MetricsLogger); ok {
		m.LogRun(agent, steps, dur, success, err)
		return
	}
	plain(l, "agent.run.completed", "agent.run.failed", success, err, "agent", agent, "steps", steps, "duration_ms", dur.Milliseconds())
}

func plain(l Logger, okMsg, failMsg string, success bool, err error, args ...any) {
	l = OrNoOp(l)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if !success {
		l.Error(failMsg, args...)
		return
	}
	l.Info(okMsg, args...)
}

// LogToolCall implements MetricsLogger.
func (t Tee) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	for _, l := range t {
		LogToolCall(l, tool, dur, success, err)
	}
}

// LogLLMCall implements MetricsLogger.
func (t Tee) LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error) {
	for _, l := range t {
		LogLLMCall(l, model, tokens, dur, success, err)
	}
}

// LogRun implements MetricsLogger.
func (t Tee) LogRun(agent string, steps int, dur time.Duration, success bool, err error) {
	for _, l := range t {
		LogRun(l, agent, steps, dur, success, err)
	}
}

// StartTimer returns a function that logs msg at info level with the
// elapsed duration_ms appended to args.
func StartTimer(l Logger, msg string, args ...any) func() {
	l = OrNoOp(l)
	start := time.Now()
	return func() {
		l.Info(msg, append(args, "duration_ms", time.Since(start).Milliseconds())...)
	}
}
