package testscheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors. ErrTimedOut is returned as an ordinary error value;
// ErrAlreadyRunning and ErrTerminated are used as panic payloads, as are
// the other programmer errors (parking while blocking, polling a cancelled
// task).
var (
	// ErrAlreadyRunning is the panic payload raised by [Scheduler.Run] when
	// called while the scheduler is already driving its loop on another
	// goroutine.
	ErrAlreadyRunning = errors.New("testscheduler: scheduler is already running")

	// ErrTerminated is the panic payload raised by [Spawn]/[SpawnDetached]
	// against a scheduler that has been [Scheduler.Close]d, and the error
	// returned by Close itself when called a second time.
	ErrTerminated = errors.New("testscheduler: scheduler has terminated")

	// ErrTimedOut is returned by [BlockWithTimeout] when
	// the virtual clock advances past the deadline before the awaited
	// future completes. The future is not cancelled; it may still be
	// awaited again.
	ErrTimedOut = errors.New("testscheduler: block_with_timeout deadline exceeded")
)

// TaskPanicError wraps a value recovered from a panicking task. It is
// delivered to whoever next polls the task's [TaskHandle]; for a detached
// task it is delivered to the scheduler's run loop instead.
type TaskPanicError struct {
	Task  TaskID
	Value any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("testscheduler: task %d panicked: %v", e.Task, e.Value)
}

// Unwrap lets [errors.Is] / [errors.As] reach through to the original panic
// value when it was itself an error, mirroring the teacher's PanicError.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ParkedError is the panic payload raised when the scheduler parks (no
// runnable job, no pending timer) while a blocking call is outstanding and
// [Config.AllowParking] is false. When [Config.CapturePendingTraces] was
// enabled it enumerates the suspension point of every still-live task, so a
// dropped sender or an unresolved channel can be diagnosed without a
// debugger.
type ParkedError struct {
	Message string
	Traces  map[TaskID]string
}

func (e *ParkedError) Error() string {
	if len(e.Traces) == 0 {
		return e.Message
	}
	ids := make([]TaskID, 0, len(e.Traces))
	for id := range e.Traces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteString("\nlive tasks at time of parking:\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "  task %d suspended at:\n%s\n", id, indent(e.Traces[id]))
	}
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// reentrantRunError is raised if a foreground task calls BlockOn or
// BlockWithTimeout on its own session from within a poll, which would
// deadlock the single-threaded loop. Calls to Run from within a task are
// not checked for this.
type reentrantRunError struct{ detail string }

func (e *reentrantRunError) Error() string {
	return "testscheduler: reentrant scheduler invocation: " + e.detail
}
