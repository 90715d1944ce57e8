package testscheduler

// Option configures secondary, additive scheduler knobs that sit outside
// the core [Config] struct. This mirrors the teacher event loop's
// functional-options pattern (options.go's LoopOption/loopOptionImpl),
// reused here for ambient concerns like logging and trace capture depth.
type Option interface {
	apply(*schedulerOptions)
}

type schedulerOptions struct {
	logger     Logger
	traceDepth int
	timerCap   int
}

type optionFunc func(*schedulerOptions)

func (f optionFunc) apply(o *schedulerOptions) { f(o) }

// WithLogger installs a [Logger] the scheduler writes its task poll and
// suspension diagnostics to. Defaults to the process-wide logger set via
// [SetGlobalLogger], or a no-op logger if that was never called.
func WithLogger(l Logger) Option {
	return optionFunc(func(o *schedulerOptions) {
		if l == nil {
			l = NewNoopLogger()
		}
		o.logger = l
	})
}

// WithTraceDepth bounds the number of stack frames captured per suspension
// when [Config.CapturePendingTraces] is enabled. The default is 32.
func WithTraceDepth(frames int) Option {
	return optionFunc(func(o *schedulerOptions) {
		if frames > 0 {
			o.traceDepth = frames
		}
	})
}

// WithTimerWheelCapacity pre-sizes the scheduler's timer heap to hold n
// entries without reallocating, for tests that schedule a large, known
// number of timers up front. It is a pure performance hint: the heap grows
// past n like any Go slice if exceeded.
func WithTimerWheelCapacity(n int) Option {
	return optionFunc(func(o *schedulerOptions) {
		if n > 0 {
			o.timerCap = n
		}
	})
}

func resolveOptions(opts []Option) *schedulerOptions {
	o := &schedulerOptions{
		logger:     getGlobalLogger(),
		traceDepth: 32,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(o)
	}
	return o
}
