package memory

import (
	"sync"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

type deviceStore struct {
	store  map[int32]model.Device
	nextID int32
	sync.RWMutex
}

func newDeviceStore() *deviceStore {
	return &deviceStore{
		store:  make(map[int32]model.Device),
		nextID: 1,
	}
}

func (s *deviceStore) FetchAll() (models map[int32]model.Device, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Device, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *deviceStore) FetchActive() (models map[int32]model.Device, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Device)

	for id, m := range s.store {
		if m.Active {
			models[id] = m
		}
	}

	return models, nil
}

func (s *deviceStore) FindByID(id int32) (*model.Device, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *deviceStore) Create(m *model.Device) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()

	// Set default values
	if m.APIPort == 0 {
		m.APIPort = 8728
	}
	if m.MaxUsers == 0 {
		m.MaxUsers = 50
	}

	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *deviceStore) Update(m *model.Device) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[m.ID] = *m

	return nil
}

func (s *deviceStore) UpdateOccupancy(id int32, count int, syncedAt time.Time) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	m.CurrentUsers = count
	m.LastSyncAt = syncedAt
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *deviceStore) Delete(id int32) error {
	s.Lock()
	defer s.Unlock()

	_, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	return nil
}

func (s *deviceStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
