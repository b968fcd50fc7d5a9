package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"presence/internal/ledger/metrics"
	"presence/internal/ledger/models"
	"presence/internal/ledger/store/memory"
	"presence/internal/verification"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/audit/publisher"
	auditmemory "presence/pkg/platform/audit/store/memory"
	"presence/pkg/requestcontext"
)

type LedgerSuite struct {
	suite.Suite
	service *Service
	store   *memory.InMemoryStore
	audits  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	user    id.UserID
	event   id.EventID
	ctx     context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.audits = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.user = id.UserID(uuid.New())
	s.event = id.EventID(uuid.New())
	s.ctx = requestcontext.WithTime(context.Background(), time.UnixMilli(1_700_000_000_000))

	svc, err := New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.NewPublisher(s.audits)),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *LedgerSuite) payload(ms int64) models.Payload {
	return models.CheckInPayload{Method: "geo", OccurredAtMs: ms, DistanceMeters: 80}
}

func (s *LedgerSuite) appendN(n int) []*models.Entry {
	var out []*models.Entry
	prev := ""
	for i := range n {
		e, err := s.service.Append(s.ctx, models.AppendRequest{
			UserID: s.user, EventID: s.event, Payload: s.payload(int64(i)), PreviousHash: prev,
		})
		s.Require().NoError(err)
		out = append(out, e)
		prev = e.Hash
	}
	return out
}

func (s *LedgerSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Require().Error(err)
}

func (s *LedgerSuite) TestAppend() {
	s.Run("sequences increase from one and link by hash", func() {
		entries := s.appendN(4)
		for i, e := range entries {
			s.Equal(uint64(i+1), e.Sequence)
		}
		s.Empty(entries[0].PreviousHash)
		s.Equal(entries[2].Hash, entries[3].PreviousHash)
		s.Equal(4.0, testutil.ToFloat64(s.metrics.Appends.WithLabelValues("checkin", "appended")))
	})

	s.Run("stale previous hash is rejected and the chain is unchanged", func() {
		entries, err := s.service.ListForUser(s.ctx, s.user)
		s.Require().NoError(err)
		before := len(entries)

		_, err = s.service.Append(s.ctx, models.AppendRequest{
			UserID: s.user, EventID: s.event, Payload: s.payload(99), PreviousHash: entries[0].Hash,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
		reason, ok := verification.ReasonOf(err)
		s.Require().True(ok)
		s.Equal(verification.ReasonInvalidPreviousHash, reason)

		after, err := s.service.ListForUser(s.ctx, s.user)
		s.Require().NoError(err)
		s.Len(after, before)
	})

	s.Run("audits appends and conflicts", func() {
		events, err := s.audits.ListByUser(context.Background(), s.user)
		s.Require().NoError(err)
		var appended, conflicts int
		for _, e := range events {
			switch e.Action {
			case string(audit.EventLedgerAppended):
				appended++
			case string(audit.EventLedgerConflict):
				conflicts++
			}
		}
		s.Equal(4, appended)
		s.Equal(1, conflicts)
	})
}

func (s *LedgerSuite) TestConcurrentAppendOneWins() {
	head := s.appendN(1)[0]

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Append(s.ctx, models.AppendRequest{
				UserID: s.user, EventID: s.event, Payload: s.payload(int64(100 + i)), PreviousHash: head.Hash,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrity), "losers see an integrity error, got %v", err)
	}
	s.Equal(1, wins)

	entries, err := s.service.ListForUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *LedgerSuite) TestAppendOnHead() {
	s.appendN(2)
	entry, err := s.service.AppendOnHead(s.ctx, s.user, s.event, models.OfflineSyncPayload{Method: "qr", OccurredAtMs: 5})
	s.Require().NoError(err)
	s.Equal(uint64(3), entry.Sequence)
	s.Equal(models.KindOfflineSync, entry.Payload.Kind())
}

func (s *LedgerSuite) TestHeadOfEmptyChainIsNil() {
	head, err := s.service.Head(s.ctx, s.user)
	s.Require().NoError(err)
	s.Nil(head)

	entries, err := s.service.ListForUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.NotNil(entries)
	s.Empty(entries)
}

func (s *LedgerSuite) TestVerify() {
	s.appendN(3)

	s.Run("intact", func() {
		report, err := s.service.Verify(s.ctx, s.user)
		s.Require().NoError(err)
		s.True(report.Valid)
		s.Equal(3, report.Length)
	})

	s.Run("tampered entry is reported", func() {
		svc, err := New(&tamperingStore{
			InMemoryStore: s.store,
			sequence:      2,
			mutate: func(e *models.Entry) {
				e.Payload = models.CheckInPayload{Method: "geo", OccurredAtMs: 12345}
			},
		}, WithMetrics(s.metrics))
		s.Require().NoError(err)
		report, err := svc.Verify(s.ctx, s.user)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
		s.False(report.Valid)
		s.Equal(uint64(2), report.BrokenAt)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.VerifyFailures))
	})
}

// tamperingStore rewrites one entry on every read, as a corrupted row would.
type tamperingStore struct {
	*memory.InMemoryStore
	sequence uint64
	mutate   func(*models.Entry)
}

func (t *tamperingStore) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	entries, err := t.InMemoryStore.ListForUser(ctx, userID)
	for _, e := range entries {
		if e.Sequence == t.sequence {
			t.mutate(e)
		}
	}
	return entries, err
}

func (s *LedgerSuite) TestAppendSynced() {
	s.appendN(1)
	payload := models.OfflineSyncPayload{QueueItemID: "item-1", Method: "geo", OccurredAtMs: 5}

	s.Run("replays return the first entry", func() {
		first, appended, err := s.service.AppendSynced(s.ctx, s.user, s.event, payload)
		s.Require().NoError(err)
		s.True(appended)
		s.Equal(uint64(2), first.Sequence)

		for range 2 {
			again, appended, err := s.service.AppendSynced(s.ctx, s.user, s.event, payload)
			s.Require().NoError(err)
			s.False(appended)
			s.Equal(first.Hash, again.Hash)
		}

		entries, err := s.service.ListForUser(s.ctx, s.user)
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("concurrent replays append once", func() {
		concurrent := models.OfflineSyncPayload{QueueItemID: "item-2", Method: "qr", OccurredAtMs: 6}
		var wg sync.WaitGroup
		var mu sync.Mutex
		appendedCount := 0
		hashes := map[string]struct{}{}
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				entry, appended, err := s.service.AppendSynced(s.ctx, s.user, s.event, concurrent)
				if !s.NoError(err) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				hashes[entry.Hash] = struct{}{}
				if appended {
					appendedCount++
				}
			}()
		}
		wg.Wait()

		s.Equal(1, appendedCount)
		s.Len(hashes, 1)
		entries, err := s.service.ListForUser(s.ctx, s.user)
		s.Require().NoError(err)
		s.Len(entries, 3)
	})

	s.Run("queue item id is required", func() {
		_, _, err := s.service.AppendSynced(s.ctx, s.user, s.event, models.OfflineSyncPayload{Method: "geo"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

type failingStore struct{ memory.InMemoryStore }

func (f *failingStore) Head(context.Context, id.UserID) (*models.Entry, error) {
	return nil, errors.New("connection reset")
}

func (s *LedgerSuite) TestStoreFailureIsInternal() {
	svc, err := New(&failingStore{})
	s.Require().NoError(err)
	_, err = svc.Append(s.ctx, models.AppendRequest{UserID: s.user, EventID: s.event, Payload: s.payload(1)})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
