package testscheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptions_Defaults(t *testing.T) {
	o := resolveOptions(nil)
	require.NotNil(t, o)
	assert.Equal(t, 32, o.traceDepth)
	assert.Equal(t, 0, o.timerCap)
	assert.NotNil(t, o.logger)
}

func TestWithLogger_NilFallsBackToNoop(t *testing.T) {
	o := resolveOptions([]Option{WithLogger(nil)})
	assert.False(t, o.logger.Enabled(LevelDebug))
}

func TestWithTraceDepth_IgnoresNonPositive(t *testing.T) {
	o := resolveOptions([]Option{WithTraceDepth(0), WithTraceDepth(-5)})
	assert.Equal(t, 32, o.traceDepth)

	o2 := resolveOptions([]Option{WithTraceDepth(8)})
	assert.Equal(t, 8, o2.traceDepth)
}

func TestWithTimerWheelCapacity(t *testing.T) {
	o := resolveOptions([]Option{WithTimerWheelCapacity(256)})
	assert.Equal(t, 256, o.timerCap)

	o2 := resolveOptions([]Option{WithTimerWheelCapacity(0)})
	assert.Equal(t, 0, o2.timerCap)
}

func TestResolveOptions_NilOptionSkipped(t *testing.T) {
	o := resolveOptions([]Option{nil, WithTraceDepth(4), nil})
	assert.Equal(t, 4, o.traceDepth)
}

func TestWithTraceDepth_BoundsCapturedTraceLength(t *testing.T) {
	capture := func(depth int) string {
		cfg := DefaultConfig()
		cfg.CapturePendingTraces = true
		var s *Scheduler
		if depth > 0 {
			s = NewScheduler(cfg, WithTraceDepth(depth))
		} else {
			s = NewScheduler(cfg)
		}
		fg := s.Foreground()
		bg := s.Background()

		mbox := NewMailbox[int]()
		driver := Spawn(bg, func(tc *TaskContext) int {
			return Recv(tc, mbox)
		})

		var caught any
		func() {
			defer func() { caught = recover() }()
			BlockOn(fg, driver)
		}()
		pe, ok := caught.(*ParkedError)
		require.True(t, ok, "expected *ParkedError, got %#v", caught)
		require.Len(t, pe.Traces, 1)
		for _, trace := range pe.Traces {
			return trace
		}
		return ""
	}

	full := capture(0)
	short := capture(2)

	assert.Less(t, len(short), len(full), "a small WithTraceDepth should truncate the captured stack")
	assert.LessOrEqual(t, strings.Count(short, "\n"), 1+2*2, "short trace should keep at most depth frame-pairs plus the goroutine header")
}

func TestNewScheduler_PreSizesTimerHeap(t *testing.T) {
	s := NewScheduler(DefaultConfig(), WithTimerWheelCapacity(16))
	assert.Equal(t, 0, s.timers.Len())
	assert.Equal(t, 16, cap(s.timers))
}
