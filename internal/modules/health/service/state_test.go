package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	s := NewState()

	assert.False(t, s.Ready())
	s.SetReady(true)
	assert.True(t, s.Ready())

	assert.Zero(t, s.ActiveStreams())
	s.StreamOpened()
	s.StreamOpened()
	s.StreamClosed()
	assert.Equal(t, int64(1), s.ActiveStreams())

	assert.True(t, s.LastCycle().IsZero())
	now := time.Now()
	s.TouchCycle(now)
	assert.Equal(t, now.Unix(), s.LastCycle().Unix())
}
