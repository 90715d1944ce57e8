package testscheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_EmptyReturnsEmptySlice(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	bg := s.Background()
	fg := s.Foreground()

	driver := Spawn(bg, func(tc *TaskContext) []int {
		return Collect[int](tc)
	})
	got := BlockOn(fg, driver)
	assert.Empty(t, got)
}

func TestCollect_ReturnsInCompletionOrder(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	bg := s.Background()
	fg := s.Foreground()

	fast := Spawn(bg, func(tc *TaskContext) string {
		Sleep(tc, 10*time.Millisecond)
		return "fast"
	})
	slow := Spawn(bg, func(tc *TaskContext) string {
		Sleep(tc, 100*time.Millisecond)
		return "slow"
	})

	driver := Spawn(bg, func(tc *TaskContext) []string {
		return Collect(tc, slow, fast)
	})
	got := BlockOn(fg, driver)
	require.Equal(t, []string{"fast", "slow"}, got)
}

func TestCollect_PropagatesPanicFromAMember(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	bg := s.Background()
	fg := s.Foreground()

	ok := Spawn(bg, func(tc *TaskContext) int { return 1 })
	bad := Spawn(bg, func(tc *TaskContext) int { panic("bad") })

	driver := Spawn(bg, func(tc *TaskContext) []int {
		return Collect(tc, ok, bad)
	})

	var caught any
	func() {
		defer func() { caught = recover() }()
		BlockOn(fg, driver)
	}()
	require.NotNil(t, caught)
}
