package chain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/ledger/models"
	"presence/internal/verification"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
)

var (
	userID  = id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	eventID = id.EventID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	now     = time.UnixMilli(1_700_000_000_000)
)

func checkIn(ms int64) models.Payload {
	return models.CheckInPayload{Method: "geo", OccurredAtMs: ms, DistanceMeters: 80}
}

func build(t *testing.T, n int) []*models.Entry {
	t.Helper()
	var head *models.Entry
	entries := make([]*models.Entry, 0, n)
	for i := range n {
		prev := ""
		if head != nil {
			prev = head.Hash
		}
		e, err := Next(head, models.AppendRequest{UserID: userID, EventID: eventID, Payload: checkIn(int64(i)), PreviousHash: prev}, now)
		require.NoError(t, err)
		entries = append(entries, e)
		head = e
	}
	return entries
}

func TestNext(t *testing.T) {
	t.Run("first entry has sequence one and no previous hash", func(t *testing.T) {
		e, err := Next(nil, models.AppendRequest{UserID: userID, EventID: eventID, Payload: checkIn(1)}, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), e.Sequence)
		assert.Empty(t, e.PreviousHash)
		assert.Len(t, e.Hash, 64)
		assert.Equal(t, EntryID(e.Hash), e.ID)
		assert.NotEqual(t, e.Hash, e.ID)
	})

	t.Run("sequences 1..N link by hash", func(t *testing.T) {
		entries := build(t, 5)
		for i, e := range entries {
			assert.Equal(t, uint64(i+1), e.Sequence)
			if i > 0 {
				assert.Equal(t, entries[i-1].Hash, e.PreviousHash)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		req := models.AppendRequest{UserID: userID, EventID: eventID, Payload: checkIn(1)}
		a, err := Next(nil, req, now)
		require.NoError(t, err)
		b, err := Next(nil, req, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, a.Hash, b.Hash, "recorded_at is not part of the hash")
	})

	t.Run("stale previous hash is rejected", func(t *testing.T) {
		entries := build(t, 2)
		_, err := Next(entries[1], models.AppendRequest{UserID: userID, EventID: eventID, Payload: checkIn(9), PreviousHash: entries[0].Hash}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrity))
		reason, ok := verification.ReasonOf(err)
		require.True(t, ok)
		assert.Equal(t, verification.ReasonInvalidPreviousHash, reason)
	})

	t.Run("fabricated previous hash on empty chain is rejected", func(t *testing.T) {
		_, err := Next(nil, models.AppendRequest{UserID: userID, EventID: eventID, Payload: checkIn(1), PreviousHash: "deadbeef"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrity))
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := Next(nil, models.AppendRequest{UserID: userID, EventID: eventID}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestHashCoversPayloadVariants(t *testing.T) {
	base := &models.Entry{UserID: userID, EventID: eventID, Sequence: 1, Payload: checkIn(1)}
	sync := &models.Entry{UserID: userID, EventID: eventID, Sequence: 1, Payload: models.OfflineSyncPayload{Method: "geo", OccurredAtMs: 1}}
	raw, err := models.CanonicalCBOR(map[string]int{"x": 1})
	require.NoError(t, err)
	opaque := &models.Entry{UserID: userID, EventID: eventID, Sequence: 1, Payload: models.OpaquePayload{Type: "future", Raw: raw}}

	hashes := map[string]bool{}
	for _, e := range []*models.Entry{base, sync, opaque} {
		h, err := Hash(e)
		require.NoError(t, err)
		hashes[h] = true
	}
	assert.Len(t, hashes, 3)
}

func TestVerify(t *testing.T) {
	t.Run("intact chain", func(t *testing.T) {
		entries := build(t, 4)
		report := Verify(entries)
		assert.True(t, report.Valid)
		assert.Equal(t, 4, report.Length)
		assert.Equal(t, entries[3].Hash, report.HeadHash)
	})

	t.Run("empty chain is valid", func(t *testing.T) {
		assert.True(t, Verify(nil).Valid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		entries := build(t, 3)
		entries[1].Payload = checkIn(999)
		report := Verify(entries)
		assert.False(t, report.Valid)
		assert.Equal(t, uint64(2), report.BrokenAt)
	})

	t.Run("removed entry", func(t *testing.T) {
		entries := build(t, 3)
		report := Verify([]*models.Entry{entries[0], entries[2]})
		assert.False(t, report.Valid)
		assert.Equal(t, uint64(3), report.BrokenAt)
	})

	t.Run("forged id", func(t *testing.T) {
		entries := build(t, 1)
		entries[0].ID = entries[0].Hash
		report := Verify(entries)
		assert.False(t, report.Valid)
		assert.Equal(t, "id does not match hash", report.Reason)
	})
}
