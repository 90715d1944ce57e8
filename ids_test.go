package testscheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualInstantIsDuration(t *testing.T) {
	var v VirtualInstant = 5 * time.Second
	assert.Equal(t, 5*time.Second, time.Duration(v))
}

func TestIDsAreDistinctAcrossSessions(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	a := s.Foreground()
	b := s.Foreground()
	assert.NotEqual(t, a.Session(), b.Session())
}
