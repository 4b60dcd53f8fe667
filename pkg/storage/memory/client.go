package memory

import (
	"sync"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

type clientStore struct {
	store  map[int32]model.Client
	nextID int32
	sync.RWMutex
}

func newClientStore() *clientStore {
	return &clientStore{
		store:  make(map[int32]model.Client),
		nextID: 1,
	}
}

func (s *clientStore) FetchAll() (models map[int32]model.Client, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Client, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *clientStore) FindByID(id int32) (*model.Client, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *clientStore) FindByEmail(email string) (*model.Client, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if m.Email == email {
			return &m, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *clientStore) Create(m *model.Client) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *clientStore) Update(m *model.Client) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[m.ID] = *m

	return nil
}

func (s *clientStore) AddCredits(id int32, amount int) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	m.Credits += amount
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *clientStore) DecrementCredit(id int32, amount int) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	if m.Credits < amount {
		return storage.ErrInsufficientCredit
	}

	m.Credits -= amount
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *clientStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
