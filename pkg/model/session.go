package model

import "time"

// Session is a model of the persistency layer. A session is appended when
// a credential was accepted by the device and closed exactly once, either
// by disconnect detection or by an administrative revoke.
type Session struct {
	ID       int32
	ClientID int32
	DeviceID int32

	// Username is the ephemeral hotspot login the session was issued
	// for. Unique among the open sessions of a device.
	Username string

	StartedAt time.Time
	EndedAt   *time.Time
	DataUsed  int64
	RemoteIP  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndedAt == nil
}
