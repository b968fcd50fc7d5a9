// Package memory is an in-process ledger store. Writes serialize per user.
package memory

import (
	"context"
	"sync"

	"presence/internal/ledger/models"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
)

type userChain struct {
	mu       sync.Mutex
	entries  []*models.Entry
	syncKeys map[string]int // queue item ID -> index into entries
}

type InMemoryStore struct {
	chains sync.Map // id.UserID -> *userChain
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) chainFor(userID id.UserID) *userChain {
	c, _ := s.chains.LoadOrStore(userID, &userChain{syncKeys: map[string]int{}})
	return c.(*userChain)
}

func (s *InMemoryStore) Head(_ context.Context, userID id.UserID) (*models.Entry, error) {
	c := s.chainFor(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return c.entries[len(c.entries)-1].Clone(), nil
}

func (s *InMemoryStore) AppendIfMatches(_ context.Context, entry *models.Entry, expectedPrevHash string) error {
	c := s.chainFor(entry.UserID)
	c.mu.Lock()
	defer c.mu.Unlock()

	key := models.SyncKey(entry.Payload)
	if key != "" {
		if _, ok := c.syncKeys[key]; ok {
			return sentinel.ErrAlreadyUsed
		}
	}

	current := ""
	var nextSeq uint64 = 1
	if n := len(c.entries); n > 0 {
		current = c.entries[n-1].Hash
		nextSeq = c.entries[n-1].Sequence + 1
	}
	if current != expectedPrevHash || entry.Sequence != nextSeq {
		return sentinel.ErrConflict
	}
	c.entries = append(c.entries, entry.Clone())
	if key != "" {
		c.syncKeys[key] = len(c.entries) - 1
	}
	return nil
}

func (s *InMemoryStore) FindSynced(_ context.Context, userID id.UserID, queueItemID string) (*models.Entry, error) {
	c := s.chainFor(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.syncKeys[queueItemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.entries[i].Clone(), nil
}

func (s *InMemoryStore) ListForUser(_ context.Context, userID id.UserID) ([]*models.Entry, error) {
	c := s.chainFor(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out, nil
}
