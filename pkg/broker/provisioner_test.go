package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

func TestProvisionerProvision(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 1)
	env.markFresh(t, device.ID, 0)

	cred, session, remaining, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	assert.True(t, strings.HasPrefix(cred.Username, fmt.Sprintf("user_%d_", client.ID)))
	assert.Len(t, cred.Password, 10)
	assert.Equal(t, DefaultProfile, cred.Profile)
	assert.Equal(t, DefaultUptime, cred.Uptime)

	// The device holds the user, the credit is spent, the session is open
	assert.Equal(t, 1, env.transport.userCount(device.ID))
	assert.Equal(t, 0, env.client(t, client.ID).Credits)

	require.NotZero(t, session.ID)
	assert.Equal(t, cred.Username, session.Username)
	assert.Equal(t, "203.0.113.9", session.RemoteIP)
	assert.True(t, session.Open())

	// The background resync converges the cached occupancy
	assert.Eventually(t, func() bool {
		return env.device(t, device.ID).CurrentUsers == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// A rejected device command must leave no trace: no debit, no session.
func TestProvisionerDeviceFailureLeavesNoState(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 3)
	env.markFresh(t, device.ID, 0)

	env.transport.mu.Lock()
	env.transport.execErr = fmt.Errorf("failure: profile not found")
	env.transport.mu.Unlock()

	_, _, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
	require.Error(t, err)
	assert.True(t, IsDeviceUnreachable(err))

	assert.Equal(t, 3, env.client(t, client.ID).Credits)

	sessions, err := env.store.Sessions().FetchAll()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestProvisionerDeniedClientNeverReachesDevice(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 0)

	_, _, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
	require.Error(t, err)
	assert.Equal(t, ErrReasonInsufficientCredit, ReasonOf(err))

	assert.Equal(t, 0, env.transport.dialCount())
	assert.Equal(t, 0, env.transport.execCount())
}

// Two racing requests against a one-credit balance both pass the guard,
// but the atomic debit lets exactly one of them through. The balance
// never goes negative.
func TestProvisionerConcurrentDebitExactlyOnce(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 50, true)
	client := env.seedClient(t, 1)
	env.markFresh(t, device.ID, 0)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, storage.ErrInsufficientCredit, err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, env.client(t, client.ID).Credits)

	open, err := env.store.Sessions().CountOpenByDevice(device.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestProvisionerUsernamesAreUnique(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 50, true)
	client := env.seedClient(t, 10)
	env.markFresh(t, device.ID, 0)

	const requests = 10
	usernames := make(chan string, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, _, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
			assert.NoError(t, err)
			if cred != nil {
				usernames <- cred.Username
			}
		}()
	}
	wg.Wait()
	close(usernames)

	seen := make(map[string]bool)
	for name := range usernames {
		assert.False(t, seen[name], "duplicate username %q", name)
		seen[name] = true
	}
	assert.Len(t, seen, requests)
}

// Admission is best effort: two requests racing for the last slot may
// both be accepted and the occupancy transiently exceeds the capacity.
// The next sync reports the excess without failing anything.
func TestProvisionerOverCapacityRace(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 2)
	env.transport.preloadUsers(device.ID, 4)
	env.markFresh(t, device.ID, 4)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := env.syncer.Sync(context.Background(), device.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	refreshed := env.device(t, device.ID)
	assert.Equal(t, 6, refreshed.CurrentUsers)
	assert.Equal(t, 5, refreshed.MaxUsers)
}

func TestProvisionerRevoke(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 1)
	env.markFresh(t, device.ID, 0)

	cred, session, _, err := env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.provisioner.Revoke(context.Background(), device.ID, cred.Username))

	assert.Equal(t, 0, env.transport.userCount(device.ID))

	closed, err := env.store.Sessions().FindByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndedAt)
	endedAt := *closed.EndedAt

	// Revoking again acknowledges without touching the end time
	require.NoError(t, env.provisioner.Revoke(context.Background(), device.ID, cred.Username))

	again, err := env.store.Sessions().FindByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, again.EndedAt)
	assert.Equal(t, endedAt, *again.EndedAt)
}

func TestProvisionerRevokeUnknownUsername(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)

	assert.NoError(t, env.provisioner.Revoke(context.Background(), device.ID, "user_1_deadbeef"))
}

// A connection that died underneath an earlier command is replaced by
// the pool, the next provisioning request succeeds on a fresh dial.
func TestProvisionerRecoversFromDeadConnection(t *testing.T) {
	env := newTestEnv(DefaultCommandTimeout)
	device := env.seedDevice(t, 5, true)
	client := env.seedClient(t, 1)
	env.markFresh(t, device.ID, 0)

	gw, err := env.pool.Acquire(context.Background(), device.ID)
	require.NoError(t, err)

	env.transport.mu.Lock()
	env.transport.execErr = fmt.Errorf("connection reset by peer")
	env.transport.mu.Unlock()

	_, err = gw.Execute(context.Background(), "/ip/hotspot/active/print")
	require.True(t, IsDeviceUnreachable(err))

	env.transport.mu.Lock()
	env.transport.execErr = nil
	env.transport.mu.Unlock()

	_, _, _, err = env.provisioner.Provision(context.Background(), client.ID, device.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, env.transport.dialCount())
}
