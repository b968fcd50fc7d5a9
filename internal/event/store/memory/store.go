package memory

import (
	"context"
	"sync"

	"presence/internal/event/models"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.EventID]models.Event)}
}

func (s *InMemoryStore) Get(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemoryStore) Save(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = *event
	return nil
}

func (s *InMemoryStore) RecordEjection(_ context.Context, eventID id.EventID) error {
	return s.bump(eventID, func(e *models.Event) { e.Ejections++ })
}

func (s *InMemoryStore) RecordParticipant(_ context.Context, eventID id.EventID) error {
	return s.bump(eventID, func(e *models.Event) { e.Participants++ })
}

func (s *InMemoryStore) bump(eventID id.EventID, fn func(*models.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(&e)
	s.events[eventID] = e
	return nil
}
