package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/checkin/models"
	"presence/internal/checkin/ticket"
	eventmodels "presence/internal/event/models"
	eventservice "presence/internal/event/service"
	eventmemory "presence/internal/event/store/memory"
	ledgermodels "presence/internal/ledger/models"
	ledgerservice "presence/internal/ledger/service"
	ledgermemory "presence/internal/ledger/store/memory"
	offlinemodels "presence/internal/offlinequeue/models"
	offlineservice "presence/internal/offlinequeue/service"
	offlinememory "presence/internal/offlinequeue/store/memory"
	rateservice "presence/internal/ratelimit/service"
	"presence/internal/ratelimit/store/attempts"
	"presence/internal/verification/geofence"
	id "presence/pkg/domain"
	"presence/pkg/platform/sentinel"
	"presence/pkg/requestcontext"
)

type flakyLedger struct {
	*LocalLedger
	offline bool
}

func (f *flakyLedger) Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error) {
	if f.offline {
		return nil, sentinel.ErrUnavailable
	}
	return f.LocalLedger.Head(ctx, userID)
}

func TestGeofenceCheckInEndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.UnixMilli(1_700_000_000_000)
	ctx := requestcontext.WithTime(context.Background(), now)

	events, err := eventservice.New(eventmemory.NewInMemoryStore(), eventservice.WithMasterSecret([]byte("master")))
	require.NoError(t, err)
	event, err := events.Create(ctx, eventmodels.CreateRequest{
		OrganizerID:  id.UserID(uuid.New()),
		Name:         "Street festival",
		Center:       geofence.Point{Lat: 35.6762, Lng: 139.6503},
		RadiusMeters: 100,
		StartsAt:     now.Add(-time.Hour),
		EndsAt:       now.Add(time.Hour),
	})
	require.NoError(t, err)

	gate, err := rateservice.New(attempts.NewInMemory())
	require.NoError(t, err)
	ledger, err := ledgerservice.New(ledgermemory.NewInMemoryStore())
	require.NoError(t, err)
	remote := &flakyLedger{LocalLedger: NewLocalLedger(ledger)}
	storage := offlinememory.NewInMemoryStore()
	queue, err := offlineservice.New(storage, offlineservice.WithLogger(logger))
	require.NoError(t, err)
	tickets := offlineservice.NewTickets(storage)
	issuer, err := ticket.NewIssuer("ticket-key", 24*time.Hour)
	require.NoError(t, err)
	syncer, err := NewSyncer(issuer, ledger, WithSyncLogger(logger), WithParticipants(events))
	require.NoError(t, err)

	coordinator, err := New(gate, events, remote, WithLogger(logger), WithOfflineQueue(queue), WithTickets(tickets))
	require.NoError(t, err)

	user := id.UserID(uuid.New())
	at80 := geofence.Offset(event.Center, 80)
	req := models.Request{UserID: user, EventID: event.ID, Method: models.MethodGeo, Evidence: models.Evidence{Location: &at80}}

	first, err := coordinator.CheckIn(ctx, req)
	require.NoError(t, err)
	require.Equal(t, models.StateSucceeded, first.State)
	assert.Equal(t, uint64(1), first.Entry.Sequence)
	assert.Empty(t, first.Entry.PreviousHash)

	second, err := coordinator.CheckIn(requestcontext.WithTime(ctx, now.Add(time.Minute)), req)
	require.NoError(t, err)
	require.Equal(t, models.StateSucceeded, second.State)
	assert.Equal(t, uint64(2), second.Entry.Sequence)
	assert.Equal(t, first.Entry.Hash, second.Entry.PreviousHash)

	tk, err := issuer.Issue(user, event.ID, now)
	require.NoError(t, err)
	require.NoError(t, tickets.Store(ctx, event.ID, offlinemodels.StoredTicket{Ticket: tk.Token, ExpiresAt: tk.ExpiresAt}))

	remote.offline = true
	third, err := coordinator.CheckIn(requestcontext.WithTime(ctx, now.Add(2*time.Minute)), req)
	require.NoError(t, err)
	require.Equal(t, models.StateQueuedOffline, third.State)

	items, err := queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, third.QueueItemID, items[0].ID)
	assert.Equal(t, tk.Token, items[0].Ticket)

	remote.offline = false
	syncCtx := requestcontext.WithTime(ctx, now.Add(10*time.Minute))
	report, err := queue.Process(syncCtx, func(ctx context.Context, item offlinemodels.QueuedCheckin) error {
		_, _, err := syncer.Sync(ctx, item)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	entries, err := ledger.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ledgermodels.KindOfflineSync, entries[2].Payload.Kind())
	assert.Equal(t, entries[1].Hash, entries[2].PreviousHash)

	verify, err := ledger.Verify(ctx, user)
	require.NoError(t, err)
	assert.True(t, verify.Valid)

	stored, err := events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Participants)
}
