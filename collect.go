package testscheduler

// anyResult is the value produced by anyReadyAwaiter: the output of
// whichever handle completed first, plus its index in the slice being
// watched so the caller can remove it.
type anyResult[T any] struct {
	value T
	index int
}

// anyReadyAwaiter polls a slice of task handles and becomes ready the
// moment any one of them has completed, generalizing the teacher's
// promise.go Race combinator from promises to task handles.
type anyReadyAwaiter[T any] struct {
	handles []*TaskHandle[T]
}

func (a *anyReadyAwaiter[T]) poll(wake func()) (anyResult[T], bool) {
	for i, h := range a.handles {
		if h.job.done.Load() {
			v, _ := extractOutcome[T](h.job)
			return anyResult[T]{value: v, index: i}, true
		}
	}
	for _, h := range a.handles {
		h.job.addWaiter(wake)
	}
	var zero anyResult[T]
	return zero, false
}

// Collect awaits handles concurrently and returns their outputs in the
// order the collecting task observes them complete; handles found already
// complete on the same poll are taken in argument order. It is an unordered
// join generalized from the teacher's promise.go All/Race combinators.
func Collect[T any](tc *TaskContext, handles ...*TaskHandle[T]) []T {
	pending := append([]*TaskHandle[T]{}, handles...)
	out := make([]T, 0, len(handles))
	for len(pending) > 0 {
		res := Await[anyResult[T]](tc, &anyReadyAwaiter[T]{handles: pending})
		out = append(out, res.value)
		pending = append(pending[:res.index], pending[res.index+1:]...)
	}
	return out
}
