package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"presence/internal/offlinequeue/models"
	"presence/internal/offlinequeue/ports"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
	"presence/pkg/requestcontext"
)

const ticketKeyPrefix = "presence/offline_ticket:"

// Tickets caches one offline ticket per event in device storage.
type Tickets struct {
	storage ports.Storage
}

func NewTickets(storage ports.Storage) *Tickets {
	return &Tickets{storage: storage}
}

func (t *Tickets) Store(ctx context.Context, eventID id.EventID, ticket models.StoredTicket) error {
	b, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	return t.storage.Set(ctx, ticketKeyPrefix+eventID.String(), string(b))
}

// Get returns the cached ticket, or sentinel.ErrNotFound when none is held.
// An expired ticket is deleted and reported as not found.
func (t *Tickets) Get(ctx context.Context, eventID id.EventID) (*models.StoredTicket, error) {
	key := ticketKeyPrefix + eventID.String()
	raw, err := t.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var ticket models.StoredTicket
	if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
		return nil, errors.Join(sentinel.ErrNotFound, fmt.Errorf("decode ticket: %w", err))
	}
	if ticket.ExpiresAt.Before(requestcontext.Now(ctx)) {
		if err := t.storage.Remove(ctx, key); err != nil {
			return nil, err
		}
		return nil, sentinel.ErrNotFound
	}
	return &ticket, nil
}

func (t *Tickets) Clear(ctx context.Context, eventID id.EventID) error {
	return t.storage.Remove(ctx, ticketKeyPrefix+eventID.String())
}
