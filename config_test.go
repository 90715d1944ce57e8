package testscheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint64(0), cfg.Seed)
	assert.True(t, cfg.RandomizeOrder)
	assert.False(t, cfg.AllowParking)
	assert.False(t, cfg.CapturePendingTraces)
}
