package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

func TestDeviceStoreDefaults(t *testing.T) {
	s := NewStore()

	device := &model.Device{Name: "lobby-ap", Address: "10.1.2.3", Active: true}
	require.NoError(t, s.Devices().Create(device))

	created, err := s.Devices().FindByID(device.ID)
	require.NoError(t, err)
	assert.Equal(t, 8728, created.APIPort)
	assert.Equal(t, 50, created.MaxUsers)
	assert.True(t, created.LastSyncAt.IsZero())
}

func TestDeviceStoreUpdateOccupancy(t *testing.T) {
	s := NewStore()

	device := &model.Device{Name: "lobby-ap", Active: true}
	require.NoError(t, s.Devices().Create(device))

	syncedAt := time.Now().Round(time.Second).UTC()
	require.NoError(t, s.Devices().UpdateOccupancy(device.ID, 7, syncedAt))

	updated, err := s.Devices().FindByID(device.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.CurrentUsers)
	assert.Equal(t, syncedAt, updated.LastSyncAt)

	assert.Equal(t, storage.ErrNotFound, s.Devices().UpdateOccupancy(99, 1, syncedAt))
}

func TestClientStoreDecrementCredit(t *testing.T) {
	s := NewStore()

	client := &model.Client{Email: "guest@example.com", Credits: 2, Active: true}
	require.NoError(t, s.Clients().Create(client))

	require.NoError(t, s.Clients().DecrementCredit(client.ID, 1))
	require.NoError(t, s.Clients().DecrementCredit(client.ID, 1))

	// The balance never goes negative
	assert.Equal(t, storage.ErrInsufficientCredit, s.Clients().DecrementCredit(client.ID, 1))

	drained, err := s.Clients().FindByID(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, drained.Credits)
}

func TestClientStoreDecrementCreditConcurrent(t *testing.T) {
	s := NewStore()

	client := &model.Client{Email: "guest@example.com", Credits: 5, Active: true}
	require.NoError(t, s.Clients().Create(client))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Losers get ErrInsufficientCredit, checked via the final
			// balance below
			_ = s.Clients().DecrementCredit(client.ID, 1)
		}()
	}
	wg.Wait()

	final, err := s.Clients().FindByID(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Credits)
}

func TestClientStoreAddCredits(t *testing.T) {
	s := NewStore()

	client := &model.Client{Email: "guest@example.com", Credits: 1, Active: true}
	require.NoError(t, s.Clients().Create(client))

	require.NoError(t, s.Clients().AddCredits(client.ID, 30))

	topped, err := s.Clients().FindByID(client.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, topped.Credits)
}

func TestClientStoreFindByEmail(t *testing.T) {
	s := NewStore()

	client := &model.Client{Email: "guest@example.com", Active: true}
	require.NoError(t, s.Clients().Create(client))

	found, err := s.Clients().FindByEmail("guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, client.ID, found.ID)

	_, err = s.Clients().FindByEmail("nobody@example.com")
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestSessionStoreCloseIsMonotonic(t *testing.T) {
	s := NewStore()

	session := &model.Session{ClientID: 1, DeviceID: 1, Username: "user_1_abc",
		StartedAt: time.Now().Round(time.Second).UTC()}
	require.NoError(t, s.Sessions().Create(session))

	first := time.Now().Round(time.Second).UTC()
	require.NoError(t, s.Sessions().Close(session.ID, first))

	// A later close must not move the end time
	require.NoError(t, s.Sessions().Close(session.ID, first.Add(time.Hour)))

	closed, err := s.Sessions().FindByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndedAt)
	assert.Equal(t, first, *closed.EndedAt)
}

func TestSessionStoreFindOpenByDeviceAndUsername(t *testing.T) {
	s := NewStore()

	session := &model.Session{ClientID: 1, DeviceID: 3, Username: "user_1_abc",
		StartedAt: time.Now().Round(time.Second).UTC()}
	require.NoError(t, s.Sessions().Create(session))

	found, err := s.Sessions().FindOpenByDeviceAndUsername(3, "user_1_abc")
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.ID)

	_, err = s.Sessions().FindOpenByDeviceAndUsername(4, "user_1_abc")
	assert.Equal(t, storage.ErrNotFound, err)

	require.NoError(t, s.Sessions().Close(session.ID, time.Now().Round(time.Second).UTC()))

	_, err = s.Sessions().FindOpenByDeviceAndUsername(3, "user_1_abc")
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestSessionStoreCountOpenByDevice(t *testing.T) {
	s := NewStore()

	for i := 0; i < 3; i++ {
		session := &model.Session{ClientID: 1, DeviceID: 7, Username: "user",
			StartedAt: time.Now().Round(time.Second).UTC()}
		require.NoError(t, s.Sessions().Create(session))
		if i == 0 {
			require.NoError(t, s.Sessions().Close(session.ID, time.Now().Round(time.Second).UTC()))
		}
	}

	count, err := s.Sessions().CountOpenByDevice(7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
