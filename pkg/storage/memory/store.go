package memory

import "github.com/gestionclick24-cpu/captive/pkg/storage"

// store contains all memory-based sub-stores for managing the persistent models
type store struct {
	devices  *deviceStore
	clients  *clientStore
	sessions *sessionStore
	events   *eventStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		devices:  newDeviceStore(),
		clients:  newClientStore(),
		sessions: newSessionStore(),
		events:   newEventStore(),
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
