package broker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayCommandTimeout(t *testing.T) {
	env := newTestEnv(50 * time.Millisecond)
	device := env.seedDevice(t, 5, true)

	env.transport.execBlockCh = make(chan struct{})
	defer close(env.transport.execBlockCh)

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	_, err = gw.Execute(context.Background(), "/ip/hotspot/active/print")
	require.Error(t, err)
	assert.True(t, IsDeviceTimeout(err))
	assert.True(t, gw.Dead())
}

// A timed-out gateway evicts itself, the next acquisition gets a fresh
// connection without any caller-side bookkeeping.
func TestGatewayTimeoutEvictsAndReestablishes(t *testing.T) {
	env := newTestEnv(50 * time.Millisecond)
	device := env.seedDevice(t, 5, true)

	env.transport.execBlockCh = make(chan struct{})

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	_, err = gw.Execute(context.Background(), "/ip/hotspot/active/print")
	require.True(t, IsDeviceTimeout(err))

	// The device recovered
	close(env.transport.execBlockCh)
	env.transport.mu.Lock()
	env.transport.execBlockCh = nil
	env.transport.mu.Unlock()

	fresh, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)
	require.NotSame(t, gw, fresh)

	_, err = fresh.Execute(context.Background(), "/ip/hotspot/active/print")
	assert.NoError(t, err)
	assert.Equal(t, 2, env.transport.dialCount())
}

func TestGatewayCommandErrorMarksDead(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	env.transport.mu.Lock()
	env.transport.execErr = fmt.Errorf("connection reset by peer")
	env.transport.mu.Unlock()

	_, err = gw.Execute(context.Background(), "/ip/hotspot/active/print")
	require.Error(t, err)
	assert.True(t, IsDeviceUnreachable(err))
	assert.True(t, gw.Dead())
}

func TestGatewayDeadHandleFailsFast(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	gw.Close()

	start := time.Now()
	_, err = gw.Execute(context.Background(), "/ip/hotspot/active/print")
	require.Error(t, err)
	assert.True(t, IsHandleClosed(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestGatewayContextCancellation(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)

	env.transport.execBlockCh = make(chan struct{})
	defer close(env.transport.execBlockCh)

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = gw.Execute(ctx, "/ip/hotspot/active/print")
	require.Error(t, err)
	assert.True(t, IsDeviceTimeout(err))
	assert.True(t, gw.Dead())
}
