package testscheduler

// Config is the scheduler's explicit, immutable-after-construction
// configuration. Unlike the teacher event loop's functional-options-only
// surface, the four knobs here are part of the documented data model, so
// they are plain fields rather than options — tests construct a Config
// literal and can diff/compare it directly.
type Config struct {
	// Seed feeds the scheduler's pseudo-random selection policy. Two runs
	// with identical Seed and RandomizeOrder=true produce byte-identical
	// schedules.
	Seed uint64

	// RandomizeOrder, when true, picks uniformly at random (using the seeded
	// RNG) on each step among the eligible candidates: every runnable
	// background job, and the head of each foreground session's queue. A
	// session's later queued tasks are not candidates, so tasks of one
	// session are not reordered relative to one another. When false, the
	// earliest-enqueued eligible job is always chosen, making the schedule
	// independent of Seed entirely.
	RandomizeOrder bool

	// AllowParking controls what happens when the scheduler parks (no
	// runnable job, no pending timer) while a blocking call is outstanding.
	// false (the default) treats this as a deadlocked test and panics via
	// [ParkedError]. true sleeps the calling OS thread until an external
	// waker fires, for tests that intentionally await the outside world.
	AllowParking bool

	// CapturePendingTraces records a stack trace each time a task
	// suspends, so a [ParkedError] panic can enumerate why every live task
	// is stuck. Costs an allocation per suspension; leave off by default.
	CapturePendingTraces bool
}

// DefaultConfig returns the scheduler's default configuration: Seed=0,
// RandomizeOrder=true, AllowParking=false, CapturePendingTraces=false.
func DefaultConfig() Config {
	return Config{
		Seed:                 0,
		RandomizeOrder:       true,
		AllowParking:         false,
		CapturePendingTraces: false,
	}
}
