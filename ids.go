package testscheduler

import "time"

// SessionID identifies a foreground executor. Two foreground executors
// minted from the same scheduler always have distinct ids; background work
// carries no session.
type SessionID uint64

// TaskID identifies a spawned job in the scheduler's arena, in creation
// order.
type TaskID uint64

// TimerID identifies a scheduled timer, in creation order. Ties on deadline
// are broken by TimerID.
type TimerID uint64

// VirtualInstant is a point on the scheduler's simulated monotonic clock,
// expressed as an offset from the scheduler's construction. It never
// reflects wall-clock time; it only advances when the run loop pops an
// expired timer.
type VirtualInstant = time.Duration
