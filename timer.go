package testscheduler

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// timerEntry is one scheduled wake-up in the scheduler's min-heap, ordered
// by (deadline, id).
type timerEntry struct {
	deadline  VirtualInstant
	id        TimerID
	ready     atomic.Bool
	cancelled atomic.Bool
	waker     func()
}

func (t *timerEntry) fire() {
	t.ready.Store(true)
	if w := t.waker; w != nil {
		w()
	}
}

// timerHeap implements container/heap.Interface, ordered on (deadline, id)
// so ties are broken by creation order.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].id < h[j].id
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TimerFuture is returned by [ForegroundExecutor.Timer] /
// [BackgroundExecutor.Timer]. It becomes ready no earlier than the virtual
// clock reaching its deadline, and no earlier than every strictly-earlier
// timer has fired. It is cancellable: [TimerFuture.Stop] removes it from
// contention; the heap entry is left in place and lazily skipped on pop.
type TimerFuture struct {
	entry *timerEntry
}

func (f *TimerFuture) poll(wake func()) (struct{}, bool) {
	if f.entry.ready.Load() {
		return struct{}{}, true
	}
	f.entry.waker = wake
	return struct{}{}, false
}

// Stop cancels the timer. If it has already fired this is a no-op.
func (f *TimerFuture) Stop() {
	f.entry.cancelled.Store(true)
}

// Sleep is sugar for awaiting a timer of the given duration against the
// task's own scheduler.
func Sleep(tc *TaskContext, d time.Duration) {
	Await[struct{}](tc, tc.sched.newTimer(d))
}

func (s *Scheduler) newTimer(d time.Duration) *TimerFuture {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	id := TimerID(s.nextTimerID)
	s.nextTimerID++
	e := &timerEntry{deadline: s.clock + d, id: id}
	heap.Push(&s.timers, e)
	s.mu.Unlock()
	return &TimerFuture{entry: e}
}
