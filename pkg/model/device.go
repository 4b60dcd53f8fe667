package model

import "time"

// Device is a model of the persistency layer. It describes a managed
// hotspot gateway appliance reachable over the RouterOS API.
type Device struct {
	ID          int32
	Name        string
	Location    string
	Address     string
	APIPort     int
	APIUsername string
	APIPassword string
	UseTLS      bool

	// Capacity and cached occupancy. CurrentUsers is written by the
	// state synchronizer only and may transiently exceed MaxUsers until
	// the next sync reconciles it.
	MaxUsers     int
	CurrentUsers int
	LastSyncAt   time.Time

	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OccupancyStale reports whether the cached occupancy is older than the
// given window. A device that never synced is always stale.
func (d *Device) OccupancyStale(maxAge time.Duration, now time.Time) bool {
	if d.LastSyncAt.IsZero() {
		return true
	}
	return now.Sub(d.LastSyncAt) > maxAge
}
