package testscheduler

import (
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
)

// outcomeKind tags how a job finished.
type outcomeKind int

const (
	outcomeValue outcomeKind = iota
	outcomePanic
	outcomeCancelled
)

type taskOutcome struct {
	kind  outcomeKind
	value any
	pval  any
}

// taskCancelledSignal is a private panic sentinel thrown by suspend() to
// unwind a cancelled task's goroutine through its own deferred calls.
type taskCancelledSignal struct{}

// job is the scheduler's type-erased, arena-indexed unit of work. Every
// spawned task — whether reached through a [TaskHandle] or detached — has
// exactly one job. A job is backed by a single goroutine that is handed a
// "turn" (via resume) and hands control back (via yielded) the instant it
// either suspends at an await point or completes; the scheduler never has
// more than one job's goroutine actually executing user code at a time,
// which is what makes the rest of the scheduler's bookkeeping safe without
// per-field locking.
type job struct {
	id         TaskID
	background bool
	session    SessionID
	sched      *Scheduler

	resume  chan struct{}
	yielded chan struct{}

	queued    atomic.Bool // currently present in a foreground queue or backgroundReady
	cancelled atomic.Bool
	done      atomic.Bool
	detached  atomic.Bool // set by TaskHandle.Detach

	finishOnce sync.Once
	outcome    taskOutcome

	// waiters are wake callbacks registered by tasks awaiting this job's
	// TaskHandle, guarded by sched.mu (see addWaiter/onJobFinished).
	waiters []func()

	enqueueSeq uint64
	trace      string
}

func (j *job) finish(o taskOutcome) {
	j.finishOnce.Do(func() {
		j.outcome = o
		j.done.Store(true)
		if o.kind == outcomePanic && j.detached.Load() {
			// Nothing will ever poll a detached handle, so a panicking
			// detached task must surface at the scheduler's own run loop
			// instead, on its next step.
			j.sched.recordDetachedPanic(j.id, o.pval)
		}
		j.sched.onJobFinished(j)
	})
	select {
	case j.yielded <- struct{}{}:
	default:
	}
}

// addWaiter registers wake to be invoked once the job finishes. It
// returns false, without registering anything, if the job has already
// finished by the time the caller acquires the scheduler's lock — the
// same lock finish()/onJobFinished uses to drain and clear waiters, so
// there is no window in which a registration can be silently dropped.
func (j *job) addWaiter(wake func()) bool {
	j.sched.mu.Lock()
	defer j.sched.mu.Unlock()
	if j.done.Load() {
		return false
	}
	j.waiters = append(j.waiters, wake)
	return true
}

// cancel marks j cancelled and ensures it is given one more scheduling
// turn so its goroutine can unwind via suspend()'s taskCancelledSignal
// panic (or, if it has never been polled, via the cancelled check at the
// top of run()). Cancellation takes effect on the next turn, never
// mid-poll.
func (j *job) cancel() {
	if j.done.Load() {
		return
	}
	if !j.cancelled.CompareAndSwap(false, true) {
		return
	}
	j.sched.markRunnable(j)
}

// captureTrace records the suspending goroutine's stack, bounded to depth
// frames (the goroutine header line plus up to depth function/file line
// pairs from debug.Stack()'s output). depth<=0 keeps the stack unbounded.
func (j *job) captureTrace(depth int) {
	full := string(debug.Stack())
	if depth <= 0 {
		j.trace = full
		return
	}
	lines := strings.SplitAfter(full, "\n")
	keep := 1 + depth*2 // header + two lines per frame
	if keep < len(lines) {
		lines = lines[:keep]
	}
	j.trace = strings.Join(lines, "")
}

// Awaitable is anything a [TaskContext] can suspend a task on: a
// [*TimerFuture], a [*TaskHandle], or a [*Mailbox] receive. It is an
// explicit registration function rather than a state machine, since
// spawned task bodies here run on real goroutines (see job.go's doc
// comment) rather than being driven by generated poll code.
type Awaitable[T any] interface {
	poll(wake func()) (T, bool)
}

// TaskContext is handed to every function passed to Spawn/SpawnDetached. It
// is the only way a task observes or suspends on the scheduler that owns
// it.
type TaskContext struct {
	sched *Scheduler
	job   *job
}

// Scheduler returns the owning scheduler, so a task can spawn further work
// on its own session or on background.
func (tc *TaskContext) Scheduler() *Scheduler { return tc.sched }

func (tc *TaskContext) suspend() {
	if tc.sched.opts.logger.Enabled(LevelDebug) {
		tc.sched.opts.logger.Log(LevelDebug, "task suspending", Int("task", int(tc.job.id)))
	}
	if tc.sched.cfg.CapturePendingTraces {
		tc.job.captureTrace(tc.sched.opts.traceDepth)
	}
	tc.sched.setCurrent(0)
	tc.job.yielded <- struct{}{}
	<-tc.job.resume
	tc.sched.setCurrent(tc.job.id)
	if tc.job.cancelled.Load() {
		panic(taskCancelledSignal{})
	}
}

// Await suspends the current task until a awaits, repolling it each time
// the task is given another turn, and returns its value once ready. A
// task panics if the awaited job itself panicked or was cancelled, so the
// failure propagates to whoever is awaiting.
func Await[T any](tc *TaskContext, a Awaitable[T]) T {
	for {
		v, ok := a.poll(func() { tc.sched.markRunnable(tc.job) })
		if ok {
			return v
		}
		tc.suspend()
	}
}

// YieldRandom is an await point that yields control for a scheduler-chosen
// number of steps (0 or more), sampled from the run's RNG, letting a test
// insert adversarial interleavings at a specific point.
func YieldRandom(tc *TaskContext) {
	n := tc.sched.randomYieldCount()
	for i := 0; i < n; i++ {
		tc.sched.markRunnable(tc.job)
		tc.suspend()
	}
}
