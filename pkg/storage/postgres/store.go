package postgres

import (
	"github.com/jmoiron/sqlx"
	// PostgreSQL driver registration for sqlx
	_ "github.com/lib/pq"

	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	devices  *deviceStore
	clients  *clientStore
	sessions *sessionStore
	events   *eventStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		devices:  newDeviceStore(db),
		clients:  newClientStore(db),
		sessions: newSessionStore(db),
		events:   newEventStore(db),
	}
}

// Devices returns a sub-store for managing the Device model
func (s *store) Devices() storage.DeviceStore {
	return s.devices
}

// Clients returns a sub-store for managing the Client model
func (s *store) Clients() storage.ClientStore {
	return s.clients
}

// Sessions returns a sub-store for managing the Session model
func (s *store) Sessions() storage.SessionStore {
	return s.sessions
}

// Events returns a sub-store for managing the Event model
func (s *store) Events() storage.EventStore {
	return s.events
}

// insertColumns filters the id column from a column list because it's of
// SQL type serial.
func insertColumns(all []string) []string {
	cols := make([]string, 0, len(all)-1)
	for _, c := range all {
		if c != "id" {
			cols = append(cols, c)
		}
	}
	return cols
}
