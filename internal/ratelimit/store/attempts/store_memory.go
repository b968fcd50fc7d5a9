// Package attempts stores per-subject check-in attempts and failure streaks.
package attempts

import (
	"context"
	"sync"
	"time"

	"presence/internal/ratelimit/threshold"
)

type memoryRecord struct {
	attempts threshold.State
	failures threshold.FailureState
}

// InMemoryStore keeps state in process. Suitable for a single server or tests.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *InMemoryStore) record(key string) *memoryRecord {
	r, ok := s.records[key]
	if !ok {
		r = &memoryRecord{}
		s.records[key] = r
	}
	return r
}

func (s *InMemoryStore) LoadAttempts(_ context.Context, key string) (threshold.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		return threshold.State{}, nil
	}
	return threshold.State{Attempts: append([]time.Time(nil), r.attempts.Attempts...)}, nil
}

func (s *InMemoryStore) AdmitAttempt(_ context.Context, key string, at time.Time, cfg threshold.Config) (threshold.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(key)
	adm, next := threshold.Admit(r.attempts, cfg, at)
	r.attempts = threshold.Prune(next, cfg.Window, at)
	return adm, nil
}

func (s *InMemoryStore) LoadFailures(_ context.Context, key string) (threshold.FailureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return r.failures, nil
	}
	return threshold.FailureState{}, nil
}

func (s *InMemoryStore) RecordFailure(_ context.Context, key string, at time.Time, _ time.Duration) (threshold.FailureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(key)
	r.failures = threshold.RecordFailure(r.failures, at)
	return r.failures, nil
}

func (s *InMemoryStore) ClearFailures(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		r.failures = threshold.RecordSuccess(r.failures)
	}
	return nil
}
