package testscheduler

import "time"

// ForegroundExecutor carries a [SessionID]. Within one session, tasks
// spawned through it are polled in FIFO insertion order relative to one
// another regardless of Config.RandomizeOrder; across sessions, ordering
// is unspecified.
type ForegroundExecutor struct {
	sched *Scheduler
	id    SessionID
}

// Session returns the SessionID minted for this executor.
func (e *ForegroundExecutor) Session() SessionID { return e.id }

// Now returns the scheduler's simulated monotonic clock.
func (e *ForegroundExecutor) Now() VirtualInstant { return e.sched.Now() }

// Timer returns a future that becomes ready no earlier than Now()+d and no
// earlier than every strictly-earlier timer has fired.
func (e *ForegroundExecutor) Timer(d time.Duration) *TimerFuture {
	return e.sched.newTimer(d)
}

func (e *ForegroundExecutor) spawnJob(fn func(*TaskContext) any) *job {
	return e.sched.spawn(false, e.id, fn)
}

// BackgroundExecutor has no session. Its tasks are considered concurrent
// by construction: their relative polling order is unspecified even in
// deterministic mode. It is cheap and copyable — every call to
// [Scheduler.Background] returns an equally valid handle onto the same
// pool.
type BackgroundExecutor struct {
	sched *Scheduler
}

// Now returns the scheduler's simulated monotonic clock.
func (e *BackgroundExecutor) Now() VirtualInstant { return e.sched.Now() }

// Timer returns a future that becomes ready no earlier than Now()+d.
func (e *BackgroundExecutor) Timer(d time.Duration) *TimerFuture {
	return e.sched.newTimer(d)
}

func (e *BackgroundExecutor) spawnJob(fn func(*TaskContext) any) *job {
	return e.sched.spawn(true, 0, fn)
}

// spawner is the unexported capability both executor classes share. Go
// does not allow a method to introduce new type parameters, so the typed
// spawn surface (Spawn, SpawnDetached) is a package-level generic function
// taking the executor as its first argument, the same shape already used
// by [Await] for task suspension.
type spawner interface {
	spawnJob(fn func(*TaskContext) any) *job
}

// Spawn runs fn on a fresh task owned by ex and returns a [TaskHandle]
// yielding its result.
func Spawn[T any](ex spawner, fn func(*TaskContext) T) *TaskHandle[T] {
	j := ex.spawnJob(func(tc *TaskContext) any { return fn(tc) })
	return &TaskHandle[T]{job: j}
}

// SpawnDetached runs fn on a fresh task and immediately detaches it: the
// scheduler keeps the task alive until it completes, but discards its
// output and disables cancellation.
func SpawnDetached(ex spawner, fn func(*TaskContext)) {
	h := Spawn(ex, func(tc *TaskContext) struct{} {
		fn(tc)
		return struct{}{}
	})
	h.Detach()
}
