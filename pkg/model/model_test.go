package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviceOccupancyStale(t *testing.T) {
	now := time.Now()
	maxAge := 5 * time.Minute

	never := &Device{}
	assert.True(t, never.OccupancyStale(maxAge, now))

	fresh := &Device{LastSyncAt: now.Add(-time.Minute)}
	assert.False(t, fresh.OccupancyStale(maxAge, now))

	edge := &Device{LastSyncAt: now.Add(-maxAge)}
	assert.False(t, edge.OccupancyStale(maxAge, now))

	stale := &Device{LastSyncAt: now.Add(-maxAge - time.Second)}
	assert.True(t, stale.OccupancyStale(maxAge, now))
}

func TestSessionOpen(t *testing.T) {
	open := &Session{}
	assert.True(t, open.Open())

	endedAt := time.Now()
	closed := &Session{EndedAt: &endedAt}
	assert.False(t, closed.Open())
}
