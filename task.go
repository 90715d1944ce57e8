package testscheduler

import "fmt"

// TaskHandle is a future yielding a spawned task's output T. It shares
// only the job's output slot (single-writer/single-reader) and
// cancellation flag with the scheduler, which exclusively owns the
// underlying job in its arena.
type TaskHandle[T any] struct {
	job      *job
	detached bool
}

// poll implements [Awaitable], so a TaskHandle can itself be awaited via
// [Await], [BlockOn], or [BlockWithTimeout].
func (h *TaskHandle[T]) poll(wake func()) (T, bool) {
	if h.job.done.Load() {
		return extractOutcome[T](h.job)
	}
	if !h.job.addWaiter(wake) {
		return extractOutcome[T](h.job)
	}
	var zero T
	return zero, false
}

// IsReady probes the task's output slot without consuming it.
func (h *TaskHandle[T]) IsReady() bool {
	return h.job.done.Load()
}

// Cancel cancels the underlying task if it has not already completed. Go
// has no destructors, so this is the explicit replacement for dropping an
// un-awaited handle: the scheduler drops the future at its next scheduling
// opportunity and never polls it again. Cancel is a no-op once Detach has
// been called, or once the task has completed.
func (h *TaskHandle[T]) Cancel() {
	if h.detached {
		return
	}
	h.job.cancel()
}

// Detach converts the handle into fire-and-forget form: cancellation is
// disabled and the scheduler discards the eventual output, keeping the
// task alive until it completes naturally.
func (h *TaskHandle[T]) Detach() {
	h.detached = true
	h.job.detached.Store(true)
}

// extractOutcome reads j's finished outcome as T. A task panic is
// re-raised here as a [*TaskPanicError], propagating to whoever next polls
// the handle — for a detached task that never happens, so the panic
// instead surfaces at the scheduler's next step via job.run's own
// recover/finish.
func extractOutcome[T any](j *job) (T, bool) {
	switch j.outcome.kind {
	case outcomeValue:
		v, _ := j.outcome.value.(T)
		return v, true
	case outcomePanic:
		panic(&TaskPanicError{Task: j.id, Value: j.outcome.pval})
	default: // outcomeCancelled
		panic(fmt.Errorf("testscheduler: task %d polled after cancellation", j.id))
	}
}
