package model

// ActiveUser is a live hotspot login as reported by a device. It is a
// snapshot of device state and never persisted.
type ActiveUser struct {
	Username string
	Address  string
	Uptime   string
}
