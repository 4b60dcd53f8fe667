package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

func TestNewDeviceHidesAPIPassword(t *testing.T) {
	out := NewDevice(&model.Device{
		ID:          1,
		Name:        "lobby-ap",
		Address:     "10.1.2.3",
		APIUsername: "admin",
		APIPassword: "secret",
		Active:      true,
	})

	assert.Empty(t, out.APIPassword)
	assert.Equal(t, "admin", out.APIUsername)
}

func TestNewDeviceAvailability(t *testing.T) {
	available := NewDevice(&model.Device{MaxUsers: 5, CurrentUsers: 4, Active: true})
	assert.True(t, available.Available)

	full := NewDevice(&model.Device{MaxUsers: 5, CurrentUsers: 5, Active: true})
	assert.False(t, full.Available)

	inactive := NewDevice(&model.Device{MaxUsers: 5, CurrentUsers: 0, Active: false})
	assert.False(t, inactive.Available)
}

func TestNewDeviceOmitsZeroSyncTime(t *testing.T) {
	never := NewDevice(&model.Device{Name: "lobby-ap"})
	assert.Nil(t, never.LastSyncAt)

	syncedAt := time.Now().Round(time.Second).UTC()
	synced := NewDevice(&model.Device{Name: "lobby-ap", LastSyncAt: syncedAt})
	require.NotNil(t, synced.LastSyncAt)
	assert.Equal(t, syncedAt, *synced.LastSyncAt)
}

func TestValidateDevice(t *testing.T) {
	valid := &DeviceResource{
		Name:        "lobby-ap",
		Address:     "10.1.2.3",
		APIUsername: "admin",
		APIPassword: "secret",
		MaxUsers:    20,
		Active:      true,
	}

	m, err := ValidateDevice(valid)
	require.NoError(t, err)
	assert.Equal(t, "lobby-ap", m.Name)
	assert.Equal(t, 20, m.MaxUsers)

	for name, mutate := range map[string]func(*DeviceResource){
		"missing name":      func(r *DeviceResource) { r.Name = "" },
		"missing address":   func(r *DeviceResource) { r.Address = "" },
		"missing username":  func(r *DeviceResource) { r.APIUsername = "" },
		"missing password":  func(r *DeviceResource) { r.APIPassword = "" },
		"negative capacity": func(r *DeviceResource) { r.MaxUsers = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			broken := *valid
			mutate(&broken)
			_, err := ValidateDevice(&broken)
			assert.Error(t, err)
		})
	}
}
