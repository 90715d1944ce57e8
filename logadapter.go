package testscheduler

import (
	"github.com/joeycumines/logiface"
)

// NewLogifaceLogger adapts a generic github.com/joeycumines/logiface logger
// into the scheduler's [Logger] seam, so a test harness already standardized
// on logiface (as the teacher event loop's own test suite is, see
// coverage_phase2_test.go / coverage_extra_test.go) can plug its existing
// logger straight into a [Scheduler] via [WithLogger].
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	if l == nil {
		return NewNoopLogger()
	}
	return &logifaceLogger{l: l}
}

type logifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

func (a *logifaceLogger) Enabled(level Level) bool {
	return a.l.Level() >= logifaceLevel(level)
}

func (a *logifaceLogger) Log(level Level, msg string, fields ...Field) {
	b := a.l.Build(logifaceLevel(level))
	if b == nil {
		return
	}
	for _, f := range fields {
		b = b.Field(f.Key, f.Value)
	}
	b.Log(msg)
}

func logifaceLevel(level Level) logiface.Level {
	switch level {
	case LevelError:
		return logiface.LevelError
	case LevelWarn:
		return logiface.LevelWarning
	case LevelInfo:
		return logiface.LevelInformational
	default:
		return logiface.LevelDebug
	}
}

