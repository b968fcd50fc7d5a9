package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"presence/internal/ratelimit/threshold"
	"presence/pkg/platform/sentinel"
)

const deviceKeyPrefix = "presence/attempts:"

// KeyValue is durable string storage such as the agent's device store. Get
// returns sentinel.ErrNotFound for a missing key.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// deviceRecord is one subject's state as stored on the device.
type deviceRecord struct {
	AttemptsMs         []int64 `json:"attempts_ms,omitempty"`
	Failures           int     `json:"failures,omitempty"`
	LastFailedAtMs     int64   `json:"last_failed_at_ms,omitempty"`
	FailuresExpireAtMs int64   `json:"failures_expire_at_ms,omitempty"`
}

// DeviceStore keeps gate state in device storage, so cooldowns survive an
// agent restart. One process owns the store; the mutex serializes
// read-modify-write cycles. Failure streaks expire retain after they were
// last written, measured on the wall clock like a Redis TTL.
type DeviceStore struct {
	mu      sync.Mutex
	storage KeyValue
	clock   func() time.Time
}

func NewDevice(storage KeyValue) *DeviceStore {
	return &DeviceStore{storage: storage, clock: time.Now}
}

func (s *DeviceStore) load(ctx context.Context, key string) (deviceRecord, error) {
	raw, err := s.storage.Get(ctx, deviceKeyPrefix+key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return deviceRecord{}, nil
	}
	if err != nil {
		return deviceRecord{}, fmt.Errorf("load attempts %s: %w", key, err)
	}
	var rec deviceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return deviceRecord{}, fmt.Errorf("decode attempts %s: %w", key, err)
	}
	return rec, nil
}

func (s *DeviceStore) save(ctx context.Context, key string, rec deviceRecord) error {
	if len(rec.AttemptsMs) == 0 && rec.Failures == 0 {
		return s.storage.Remove(ctx, deviceKeyPrefix+key)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode attempts %s: %w", key, err)
	}
	return s.storage.Set(ctx, deviceKeyPrefix+key, string(b))
}

func (s *DeviceStore) LoadAttempts(ctx context.Context, key string) (threshold.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, key)
	if err != nil {
		return threshold.State{}, err
	}
	return rec.attempts(), nil
}

func (s *DeviceStore) AdmitAttempt(ctx context.Context, key string, at time.Time, cfg threshold.Config) (threshold.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, key)
	if err != nil {
		return threshold.Admission{}, err
	}
	adm, next := threshold.Admit(rec.attempts(), cfg, at)
	next = threshold.Prune(next, cfg.Window, at)
	rec.AttemptsMs = rec.AttemptsMs[:0]
	for _, t := range next.Attempts {
		rec.AttemptsMs = append(rec.AttemptsMs, t.UnixMilli())
	}
	if err := s.save(ctx, key, rec); err != nil {
		return threshold.Admission{}, err
	}
	return adm, nil
}

func (s *DeviceStore) LoadFailures(ctx context.Context, key string) (threshold.FailureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, key)
	if err != nil {
		return threshold.FailureState{}, err
	}
	return rec.failures(s.clock()), nil
}

func (s *DeviceStore) RecordFailure(ctx context.Context, key string, at time.Time, retain time.Duration) (threshold.FailureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, key)
	if err != nil {
		return threshold.FailureState{}, err
	}
	now := s.clock()
	state := threshold.RecordFailure(rec.failures(now), at)
	rec.Failures = state.ConsecutiveFailures
	rec.LastFailedAtMs = state.LastFailedAt.UnixMilli()
	rec.FailuresExpireAtMs = now.Add(retain).UnixMilli()
	if err := s.save(ctx, key, rec); err != nil {
		return threshold.FailureState{}, err
	}
	return state, nil
}

func (s *DeviceStore) ClearFailures(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	rec.Failures, rec.LastFailedAtMs, rec.FailuresExpireAtMs = 0, 0, 0
	return s.save(ctx, key, rec)
}

func (r deviceRecord) attempts() threshold.State {
	state := threshold.State{Attempts: make([]time.Time, 0, len(r.AttemptsMs))}
	for _, ms := range r.AttemptsMs {
		state.Attempts = append(state.Attempts, time.UnixMilli(ms))
	}
	return state
}

// failures returns the streak, or the zero state once it outlived its
// retention.
func (r deviceRecord) failures(now time.Time) threshold.FailureState {
	if r.Failures == 0 || (r.FailuresExpireAtMs != 0 && now.UnixMilli() >= r.FailuresExpireAtMs) {
		return threshold.FailureState{}
	}
	return threshold.FailureState{ConsecutiveFailures: r.Failures, LastFailedAt: time.UnixMilli(r.LastFailedAtMs)}
}
