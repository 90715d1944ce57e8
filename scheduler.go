package testscheduler

import (
	"container/heap"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Scheduler is a deterministic, single-threaded cooperative task executor.
// Exactly one Scheduler exists per test. It exclusively owns every spawned
// job, the timer heap, the seeded RNG, and the virtual clock. All mutation
// goes through the single mutex below; contention is non-existent since at
// most one task's own code ever runs at a time.
type Scheduler struct {
	cfg  Config
	opts *schedulerOptions

	mu    sync.Mutex
	rng   *rand.Rand
	clock VirtualInstant

	nextSessionID uint64
	nextTaskID    uint64
	nextTimerID   uint64
	seq           uint64
	jobs          map[TaskID]*job

	// foregroundQueues holds, per session, the FIFO order its tasks were
	// spawned in. Only the head of a session's queue is ever eligible for
	// selection, so a session's own tasks always poll in spawn order even
	// when RandomizeOrder picks which session (or background job) goes
	// next. backgroundReady carries no such ordering: background jobs are
	// concurrent by construction and each is independently eligible.
	foregroundQueues map[SessionID][]*job
	backgroundReady  []*job

	timers           timerHeap
	blockingSessions map[SessionID]int
	blockingDepth    int
	currentlyPolling TaskID
	running          bool
	terminated       bool

	parker        *parker
	metrics       Metrics
	detachedPanic *TaskPanicError
}

// NewScheduler constructs a Scheduler. Every Config field is meaningful at
// its Go zero value except RandomizeOrder, whose zero value (false) happens
// to coincide with the deterministic, seed-independent mode, which is a
// safe default for a caller who forgot to set it.
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:              cfg,
		opts:             resolveOptions(opts),
		rng:              rand.New(rand.NewSource(int64(cfg.Seed))),
		jobs:             make(map[TaskID]*job),
		foregroundQueues: make(map[SessionID][]*job),
		blockingSessions: make(map[SessionID]int),
		nextSessionID:    1,
		nextTaskID:       1,
		nextTimerID:      1,
	}
	if s.opts.timerCap > 0 {
		s.timers = make(timerHeap, 0, s.opts.timerCap)
	}
	s.parker = newParker()
	return s
}

// Foreground mints a fresh [ForegroundExecutor] with its own [SessionID].
func (s *Scheduler) Foreground() *ForegroundExecutor {
	s.mu.Lock()
	id := SessionID(s.nextSessionID)
	s.nextSessionID++
	s.mu.Unlock()
	return &ForegroundExecutor{sched: s, id: id}
}

// Background returns a cheap, copyable handle for spawning background
// work. Background tasks carry no session and are considered concurrent by
// construction: their relative polling order is unspecified even in
// deterministic mode.
func (s *Scheduler) Background() *BackgroundExecutor {
	return &BackgroundExecutor{sched: s}
}

// Now returns the scheduler's simulated monotonic clock. It never reflects
// wall-clock time.
func (s *Scheduler) Now() VirtualInstant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Metrics returns a snapshot of the scheduler's run counters, an ambient
// concern grounded on the teacher event loop's metrics.go.
type Metrics struct {
	StepsExecuted  int
	TasksSpawned   int
	TimersFired    int
	ParkingEvents  int
}

func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close permanently terminates the scheduler: every later [Spawn] or
// [SpawnDetached] against it panics with [ErrTerminated] instead of
// queuing a job nothing will ever poll. It does not touch any task already
// spawned, so a caller already holding handles may keep awaiting them. Close
// is idempotent and mirrors the teacher event loop's own Close, returning
// [ErrTerminated] itself if the scheduler was already closed.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrTerminated
	}
	s.terminated = true
	return nil
}

type stepResult int

const (
	stepPolled stepResult = iota
	stepTimerAdvanced
	stepParked
	stepEmpty
)

// Run drives the scheduler's selection-and-poll procedure (step) until
// every queue drains and no blocking call is outstanding.
func (s *Scheduler) Run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		panic(ErrAlreadyRunning)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for s.step() != stepEmpty {
	}
}

// RunUntil drives the scheduler the same way as Run, but stops as soon as
// pred returns true (checked before each step) or the scheduler empties,
// whichever comes first.
func (s *Scheduler) RunUntil(pred func() bool) {
	for !pred() {
		if s.step() == stepEmpty {
			return
		}
	}
}

// step is the single-step procedure: Run is exactly a loop over step, and
// the block driver performs the identical step from a different call site
// so blocking never needs its own, subtly different run loop.
func (s *Scheduler) step() stepResult {
	s.mu.Lock()
	if s.detachedPanic != nil {
		p := s.detachedPanic
		s.detachedPanic = nil
		s.mu.Unlock()
		panic(p)
	}
	j := s.selectEligibleLocked()
	if j != nil {
		j.queued.Store(false)
		s.metrics.StepsExecuted++
		s.mu.Unlock()
		s.pollJob(j)
		return stepPolled
	}

	for s.timers.Len() > 0 {
		top := s.timers[0]
		heap.Pop(&s.timers)
		if top.cancelled.Load() {
			continue
		}
		if top.deadline > s.clock {
			s.clock = top.deadline
		}
		s.metrics.TimersFired++
		s.metrics.StepsExecuted++
		s.mu.Unlock()
		top.fire()
		return stepTimerAdvanced
	}

	blocked := s.blockingDepth > 0
	s.mu.Unlock()
	if !blocked {
		return stepEmpty
	}
	if !s.cfg.AllowParking {
		panic(s.buildParkedError())
	}
	s.mu.Lock()
	s.metrics.ParkingEvents++
	s.mu.Unlock()
	s.parker.wait()
	return stepParked
}

// readyCandidate is one schedulable unit offered to selectEligibleLocked:
// either a single background job, or the head of one foreground session's
// queue. remove detaches it from wherever it lives once chosen.
type readyCandidate struct {
	job    *job
	remove func()
}

// selectEligibleLocked picks the job to poll next: insertion-order-earliest
// when RandomizeOrder is false, uniformly-at-random (via the seeded RNG)
// otherwise. Randomization is over candidates, not over every ready job
// individually — a foreground session only ever offers its queue head, so
// a session's own tasks always poll in the order they were spawned,
// regardless of how many of that session's tasks are simultaneously ready.
// Background jobs carry no such constraint and are each their own
// candidate. Must be called with s.mu held.
func (s *Scheduler) selectEligibleLocked() *job {
	var candidates []readyCandidate

	live := s.backgroundReady[:0]
	for _, j := range s.backgroundReady {
		if !j.done.Load() {
			live = append(live, j)
		}
	}
	s.backgroundReady = live
	for i := range s.backgroundReady {
		i := i
		candidates = append(candidates, readyCandidate{
			job: s.backgroundReady[i],
			remove: func() {
				s.backgroundReady = append(s.backgroundReady[:i], s.backgroundReady[i+1:]...)
			},
		})
	}

	// Iterate sessions in a canonical (numeric) order rather than Go's
	// randomized map order: map order would make the seeded RNG draw from
	// a differently-ordered candidate list on each run, breaking same-seed
	// reproducibility even though the draw itself is deterministic.
	sessionIDs := make([]SessionID, 0, len(s.foregroundQueues))
	for sid := range s.foregroundQueues {
		sessionIDs = append(sessionIDs, sid)
	}
	sort.Slice(sessionIDs, func(a, b int) bool { return sessionIDs[a] < sessionIDs[b] })

	for _, sid := range sessionIDs {
		q := s.foregroundQueues[sid]
		for len(q) > 0 && q[0].done.Load() {
			q = q[1:]
		}
		if len(q) == 0 {
			delete(s.foregroundQueues, sid)
			continue
		}
		s.foregroundQueues[sid] = q
		if s.blockingSessions[sid] > 0 {
			continue
		}
		sid := sid
		candidates = append(candidates, readyCandidate{
			job: q[0],
			remove: func() {
				rest := s.foregroundQueues[sid][1:]
				if len(rest) == 0 {
					delete(s.foregroundQueues, sid)
				} else {
					s.foregroundQueues[sid] = rest
				}
			},
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	chosen := candidates[0]
	if !s.cfg.RandomizeOrder {
		for _, c := range candidates[1:] {
			if c.job.enqueueSeq < chosen.job.enqueueSeq {
				chosen = c
			}
		}
	} else {
		chosen = candidates[s.rng.Intn(len(candidates))]
	}
	chosen.remove()
	return chosen.job
}

// pollJob hands the job one turn and waits for it to suspend or complete.
func (s *Scheduler) pollJob(j *job) {
	if s.opts.logger.Enabled(LevelDebug) {
		s.opts.logger.Log(LevelDebug, "polling task", Int("task", int(j.id)))
	}
	j.resume <- struct{}{}
	<-j.yielded
}

func (s *Scheduler) setCurrent(id TaskID) {
	s.mu.Lock()
	s.currentlyPolling = id
	s.mu.Unlock()
}

// enqueueLocked appends j to its ready queue — backgroundReady if it carries
// no session, its own session's tail otherwise — with a fresh, strictly
// increasing sequence number used to break ties in deterministic mode. Must
// be called with s.mu held.
func (s *Scheduler) enqueueLocked(j *job) {
	s.seq++
	j.enqueueSeq = s.seq
	j.queued.Store(true)
	if j.background {
		s.backgroundReady = append(s.backgroundReady, j)
		return
	}
	s.foregroundQueues[j.session] = append(s.foregroundQueues[j.session], j)
}

// markRunnable marks j runnable, enqueuing it if it is not already pending
// in its ready queue. Synchronous re-wakes (a job waking itself mid-poll)
// are safe: the job simply re-enters the usual selection on a later step.
func (s *Scheduler) markRunnable(j *job) {
	if j.done.Load() {
		return
	}
	if !j.queued.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.enqueueLocked(j)
	s.mu.Unlock()
	s.parker.signal()
}

func (s *Scheduler) onJobFinished(j *job) {
	s.mu.Lock()
	waiters := j.waiters
	j.waiters = nil
	s.mu.Unlock()
	for _, w := range waiters {
		w()
	}
}

func (s *Scheduler) randomYieldCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(3)
}

func (s *Scheduler) spawn(background bool, session SessionID, fn func(*TaskContext) any) *job {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		panic(ErrTerminated)
	}
	id := TaskID(s.nextTaskID)
	s.nextTaskID++
	j := &job{
		id:         id,
		background: background,
		session:    session,
		sched:      s,
		resume:     make(chan struct{}, 1),
		yielded:    make(chan struct{}, 1),
	}
	s.jobs[id] = j
	s.enqueueLocked(j)
	s.metrics.TasksSpawned++
	s.mu.Unlock()

	tc := &TaskContext{sched: s, job: j}
	go j.run(tc, fn)
	return j
}

func (j *job) run(tc *TaskContext, fn func(*TaskContext) any) {
	<-j.resume
	j.sched.setCurrent(j.id)
	if j.cancelled.Load() {
		j.sched.setCurrent(0)
		j.finish(taskOutcome{kind: outcomeCancelled})
		return
	}
	defer func() {
		j.sched.setCurrent(0)
		if r := recover(); r != nil {
			if _, ok := r.(taskCancelledSignal); ok {
				j.finish(taskOutcome{kind: outcomeCancelled})
				return
			}
			j.finish(taskOutcome{kind: outcomePanic, pval: r})
		}
	}()
	val := fn(tc)
	j.finish(taskOutcome{kind: outcomeValue, value: val})
}

func (s *Scheduler) buildParkedError() *ParkedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := &ParkedError{
		Message: "testscheduler: parked while a block_on call is outstanding " +
			"(no runnable task, no pending timer) — this is almost always a " +
			"dropped sender or an unresolved channel in the test",
	}
	if s.cfg.CapturePendingTraces {
		err.Traces = make(map[TaskID]string)
		for id, j := range s.jobs {
			if !j.done.Load() && j.trace != "" {
				err.Traces[id] = j.trace
			}
		}
	}
	return err
}

// enterBlocking records session id as blocking, refcounted so nested
// block_on calls on the same session from different call sites remain
// visible to the isolation rule that excludes that session's own tasks
// from selection while one of its blocking calls is outstanding.
func (s *Scheduler) enterBlocking(id SessionID) {
	s.mu.Lock()
	s.blockingDepth++
	s.blockingSessions[id]++
	s.mu.Unlock()
}

// exitBlocking reverses enterBlocking.
func (s *Scheduler) exitBlocking(id SessionID) {
	s.mu.Lock()
	s.blockingDepth--
	s.blockingSessions[id]--
	if s.blockingSessions[id] <= 0 {
		delete(s.blockingSessions, id)
	}
	s.mu.Unlock()
}

// recordDetachedPanic remembers a panic raised by a detached task, so the
// next call to step() (from Run, RunUntil, or a blocking call) re-raises it
// instead of silently discarding it. Only the first such panic is kept —
// once one is fatal there is no point tracking the rest.
func (s *Scheduler) recordDetachedPanic(id TaskID, val any) {
	s.mu.Lock()
	if s.detachedPanic == nil {
		s.detachedPanic = &TaskPanicError{Task: id, Value: val}
	}
	s.mu.Unlock()
}

func (s *Scheduler) reentrantCheck(fe *ForegroundExecutor) {
	s.mu.Lock()
	cur, ok := s.jobs[s.currentlyPolling]
	s.mu.Unlock()
	if ok && !cur.background && cur.session == fe.id {
		panic(&reentrantRunError{detail: fmt.Sprintf("foreground session %d called block_on/run from within its own task", fe.id)})
	}
}
