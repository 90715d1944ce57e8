package testscheduler

import "time"

// BlockOn synchronously drives fe's scheduler, via its single-step
// procedure, until fut completes — the only way to extract a value from
// async code in a test. While active, the scheduler's eligible set
// excludes every task spawned on fe's own session; background work and
// tasks of other sessions progress freely.
//
// BlockOn is a package-level generic function rather than a method for
// the same reason [Spawn] is: Go methods cannot introduce new type
// parameters.
func BlockOn[T any](fe *ForegroundExecutor, fut Awaitable[T]) T {
	fe.sched.reentrantCheck(fe)
	fe.sched.enterBlocking(fe.id)
	defer fe.sched.exitBlocking(fe.id)

	wake := func() {}
	for {
		if v, ok := fut.poll(wake); ok {
			return v
		}
		fe.sched.step()
	}
}

// BlockWithTimeout behaves like [BlockOn], but returns [ErrTimedOut] once
// the virtual clock has advanced at least d past the call's start without
// fut completing. fut is not cancelled on timeout: the caller retains
// whatever handle it has and may block on it again, and any timers it
// started remain scheduled.
func BlockWithTimeout[T any](fe *ForegroundExecutor, d time.Duration, fut Awaitable[T]) (T, error) {
	fe.sched.reentrantCheck(fe)
	fe.sched.enterBlocking(fe.id)
	defer fe.sched.exitBlocking(fe.id)

	start := fe.sched.Now()
	wake := func() {}
	for {
		if v, ok := fut.poll(wake); ok {
			return v, nil
		}
		if fe.sched.Now()-start >= d {
			var zero T
			return zero, ErrTimedOut
		}
		fe.sched.step()
	}
}
