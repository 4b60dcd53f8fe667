package storage

import (
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Devices() DeviceStore
	Clients() ClientStore
	Sessions() SessionStore
	Events() EventStore
}

// DeviceStore is responsible for managing the Device model
type DeviceStore interface {
	FetchAll() (map[int32]model.Device, error)
	FetchActive() (map[int32]model.Device, error)
	FindByID(id int32) (*model.Device, error)
	Create(m *model.Device) error
	Update(m *model.Device) error
	// UpdateOccupancy writes the synchronized active-user count and the
	// sync timestamp, leaving all operator-owned fields untouched.
	UpdateOccupancy(id int32, count int, syncedAt time.Time) error
	Delete(id int32) error
}

// ClientStore is responsible for managing the Client model
type ClientStore interface {
	FetchAll() (map[int32]model.Client, error)
	FindByID(id int32) (*model.Client, error)
	FindByEmail(email string) (*model.Client, error)
	Create(m *model.Client) error
	Update(m *model.Client) error
	AddCredits(id int32, amount int) error
	// DecrementCredit atomically debits amount credits and fails with
	// ErrInsufficientCredit if the balance would go negative.
	DecrementCredit(id int32, amount int) error
}

// SessionStore is responsible for managing the Session model
type SessionStore interface {
	FetchAll() (map[int32]model.Session, error)
	FetchByClient(clientID int32) (map[int32]model.Session, error)
	FindByID(id int32) (*model.Session, error)
	FindOpenByDeviceAndUsername(deviceID int32, username string) (*model.Session, error)
	CountOpenByDevice(deviceID int32) (int, error)
	Create(m *model.Session) error
	// Close sets the end time of an open session. Closing is monotonic,
	// a session that already ended is left untouched.
	Close(id int32, endedAt time.Time) error
}

// EventStore is responsible for managing the Event model
type EventStore interface {
	FetchAll() (map[int32]model.Event, error)
	FindByID(id int32) (*model.Event, error)
	Create(m *model.Event) error
}
