// Package testscheduler provides a deterministic, single-threaded
// cooperative task executor for driving asynchronous Go code under test.
//
// # Architecture
//
// A [Scheduler] owns every spawned unit of work (a "job") in an internal
// arena keyed by [TaskID]. Work is spawned through one of two executor
// classes obtained from the scheduler: [ForegroundExecutor], which carries a
// [SessionID] and polls its own tasks in FIFO order, and
// [BackgroundExecutor], whose tasks are considered concurrent and have no
// ordering guarantee. A seeded pseudo-random generator ([Config.Seed],
// [Config.RandomizeOrder]) selects which runnable job to poll on each step,
// so that a test's entire interleaving is a pure function of the seed.
//
// Time is simulated: [Scheduler.Now] never touches the wall clock. It only
// advances when the run loop pops the earliest entry off the timer heap,
// giving timer-driven code fully reproducible firing order.
//
// # Blocking
//
// [BlockOn] and [BlockWithTimeout] are the only way to synchronously
// extract a value from async code in a test. Both pump the scheduler's
// single-step procedure while enforcing session isolation: a blocking call
// on session S never drives another task of S, though it freely drives
// background work and other sessions. They are package-level generic
// functions, not methods on [ForegroundExecutor], because Go methods
// cannot introduce new type parameters; [Spawn] and [SpawnDetached] follow
// the same shape.
//
// # Parking
//
// When no job is runnable and no timer can fire while a blocking call is
// outstanding, the scheduler is parked. By default ([Config.AllowParking] is
// false) this is treated as a deadlocked test and panics; set AllowParking
// to sleep the calling OS thread instead, for tests that intentionally wait
// on the outside world.
//
// # Usage
//
//	got := testscheduler.Once(func(s *testscheduler.Scheduler) int {
//		fg := s.Foreground()
//		bg := s.Background()
//		task := testscheduler.Spawn(bg, func(tc *testscheduler.TaskContext) int {
//			testscheduler.Sleep(tc, 50*time.Millisecond)
//			return 42
//		})
//		return testscheduler.BlockOn(fg, task)
//	})
//	if got != 42 {
//		panic("unexpected result")
//	}
package testscheduler
