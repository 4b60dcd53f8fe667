package memory

import (
	"sync"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

type sessionStore struct {
	store  map[int32]model.Session
	nextID int32
	sync.RWMutex
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		store:  make(map[int32]model.Session),
		nextID: 1,
	}
}

func (s *sessionStore) FetchAll() (models map[int32]model.Session, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Session, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *sessionStore) FetchByClient(clientID int32) (models map[int32]model.Session, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Session)

	for id, m := range s.store {
		if m.ClientID == clientID {
			models[id] = m
		}
	}

	return models, nil
}

func (s *sessionStore) FindByID(id int32) (*model.Session, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *sessionStore) FindOpenByDeviceAndUsername(deviceID int32, username string) (*model.Session, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if m.DeviceID == deviceID && m.Username == username && m.EndedAt == nil {
			return &m, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *sessionStore) CountOpenByDevice(deviceID int32) (int, error) {
	s.RLock()
	defer s.RUnlock()

	count := 0
	for _, m := range s.store {
		if m.DeviceID == deviceID && m.EndedAt == nil {
			count++
		}
	}

	return count, nil
}

func (s *sessionStore) Create(m *model.Session) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *sessionStore) Close(id int32, endedAt time.Time) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	// Closing is monotonic
	if m.EndedAt != nil {
		return nil
	}

	m.EndedAt = &endedAt
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *sessionStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
