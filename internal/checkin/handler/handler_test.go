package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	checkinservice "presence/internal/checkin/service"
	"presence/internal/checkin/ticket"
	eventservice "presence/internal/event/service"
	eventmemory "presence/internal/event/store/memory"
	ledgermodels "presence/internal/ledger/models"
	ledgerservice "presence/internal/ledger/service"
	ledgermemory "presence/internal/ledger/store/memory"
	rateservice "presence/internal/ratelimit/service"
	"presence/internal/ratelimit/store/attempts"
	"presence/internal/verification/geofence"
	"presence/internal/verification/scantoken"
	id "presence/pkg/domain"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/audit/publisher"
	auditmemory "presence/pkg/platform/audit/store/memory"
	"presence/pkg/requestcontext"
	"presence/pkg/testutil"
)

var festivalCenter = geofence.Point{Lat: 35.6762, Lng: 139.6503}

type HandlerSuite struct {
	suite.Suite
	now         time.Time
	router      chi.Router
	ledgerStore *corruptibleStore
	auditStore  *auditmemory.InMemoryStore
	organizer   id.UserID
	user        id.UserID
	eventID     string
}

// corruptibleStore rewrites the entry at sequence on every read once armed,
// as a corrupted row would.
type corruptibleStore struct {
	*ledgermemory.InMemoryStore
	sequence uint64
}

func (c *corruptibleStore) ListForUser(ctx context.Context, userID id.UserID) ([]*ledgermodels.Entry, error) {
	entries, err := c.InMemoryStore.ListForUser(ctx, userID)
	for _, e := range entries {
		if c.sequence != 0 && e.Sequence == c.sequence {
			e.Payload = ledgermodels.CheckInPayload{Method: "geo", OccurredAtMs: 1}
		}
	}
	return entries, err
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.UnixMilli(1_700_000_000_000)
	s.organizer = id.UserID(uuid.New())
	s.user = id.UserID(uuid.New())

	s.auditStore = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.auditStore)
	s.T().Cleanup(pub.Close)

	events, err := eventservice.New(eventmemory.NewInMemoryStore(), eventservice.WithMasterSecret([]byte("master")))
	s.Require().NoError(err)
	gate, err := rateservice.New(attempts.NewInMemory())
	s.Require().NoError(err)
	s.ledgerStore = &corruptibleStore{InMemoryStore: ledgermemory.NewInMemoryStore()}
	ledger, err := ledgerservice.New(s.ledgerStore, ledgerservice.WithAuditPublisher(pub))
	s.Require().NoError(err)
	codec, err := scantoken.NewCodec("scan-key")
	s.Require().NoError(err)
	issuer, err := ticket.NewIssuer("ticket-key", 24*time.Hour)
	s.Require().NoError(err)
	coordinator, err := checkinservice.New(gate, events, checkinservice.NewLocalLedger(ledger),
		checkinservice.WithLogger(logger),
		checkinservice.WithAuditPublisher(pub),
		checkinservice.WithTokenDecoder(codec),
		checkinservice.WithParticipantCounter(events),
	)
	s.Require().NoError(err)
	syncer, err := checkinservice.NewSyncer(issuer, ledger,
		checkinservice.WithParticipants(events),
		checkinservice.WithSyncAuditPublisher(pub),
	)
	s.Require().NoError(err)

	h := New(Services{
		CheckIns:   coordinator,
		Events:     events,
		Ledger:     ledger,
		Syncer:     syncer,
		Tickets:    issuer,
		ScanTokens: codec,
	}, logger, WithAuditPublisher(pub))

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), s.now)))
		})
	})
	h.Register(s.router)

	s.eventID = s.createEvent()
}

func (s *HandlerSuite) createEvent() string {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events", CreateEventRequest{
		Name:         "Street festival",
		Center:       festivalCenter,
		RadiusMeters: 100,
		StartsAtMs:   s.now.Add(-time.Hour).UnixMilli(),
		EndsAtMs:     s.now.Add(time.Hour).UnixMilli(),
	}), s.organizer)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[EventResponse](s.T(), rr).ID
}

func (s *HandlerSuite) checkIn(body CheckInRequest) (int, *OutcomeResponse, http.Header) {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/"+s.eventID+"/checkins", body), s.user)
	rr := testutil.DoRequest(s.router, req)
	return rr.Code, testutil.UnmarshalResponse[OutcomeResponse](s.T(), rr), rr.Header()
}

func (s *HandlerSuite) near() *geofence.Point {
	p := geofence.Offset(festivalCenter, 20)
	return &p
}

func (s *HandlerSuite) auditActions(userID id.UserID) []string {
	events, err := s.auditStore.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *HandlerSuite) TestRequiresActingUser() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger", nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestEventProfileHidesCodeSecret() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/"+s.eventID, nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.NotContains(rr.Body.String(), "code_secret")

	resp := testutil.UnmarshalResponse[EventResponse](s.T(), rr)
	s.Equal("Street festival", resp.Name)
	s.Equal(s.organizer.String(), resp.OrganizerID)
	s.Equal(100.0, resp.RadiusMeters)
	s.Equal(30, resp.CodeStepSeconds)
	s.Equal(6, resp.CodeDigits)

	s.Run("unknown event is 404", func() {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/"+uuid.NewString(), nil), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNotFound, rr.Code)
	})
	s.Run("malformed id is 400", func() {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/nope", nil), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestCreateEventValidation() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events", CreateEventRequest{
		Name:         "Bad radius",
		Center:       festivalCenter,
		RadiusMeters: -1,
	}), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code, rr.Body.String())
}

func (s *HandlerSuite) TestGeoCheckInChainsEntries() {
	at80 := geofence.Offset(festivalCenter, 80)

	status, first, _ := s.checkIn(CheckInRequest{Method: "geo", Location: &at80})
	s.Require().Equal(http.StatusCreated, status)
	s.Equal("succeeded", first.State)
	s.Require().NotNil(first.Entry)
	s.Equal(uint64(1), first.Entry.Sequence)
	s.Empty(first.Entry.PreviousHash)
	s.InDelta(80, first.DistanceMeters, 1)
	s.Equal([]string{"idle", "awaiting_method", "verifying", "succeeded"}, first.History)

	s.now = s.now.Add(time.Minute)
	status, second, _ := s.checkIn(CheckInRequest{Method: "geo", Location: &at80})
	s.Require().Equal(http.StatusCreated, status)
	s.Equal(uint64(2), second.Entry.Sequence)
	s.Equal(first.Entry.Hash, second.Entry.PreviousHash)

	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/"+s.eventID, nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(2, testutil.UnmarshalResponse[EventResponse](s.T(), rr).Participants)

	s.Equal([]string{
		string(audit.EventLedgerAppended), string(audit.EventCheckInSucceeded),
		string(audit.EventLedgerAppended), string(audit.EventCheckInSucceeded),
	}, s.auditActions(s.user))
}

func (s *HandlerSuite) TestRefusalsCarryTheOutcome() {
	far := geofence.Offset(festivalCenter, 500)

	status, out, _ := s.checkIn(CheckInRequest{Method: "geo", Location: &far})
	s.Equal(http.StatusForbidden, status)
	s.Equal("failed", out.State)
	s.Equal("outside_geofence", out.Reason)
	s.Nil(out.Entry)

	s.checkIn(CheckInRequest{Method: "geo", Location: &far})
	s.checkIn(CheckInRequest{Method: "geo", Location: &far})

	status, out, header := s.checkIn(CheckInRequest{Method: "geo", Location: &far})
	s.Equal(http.StatusTooManyRequests, status)
	s.Equal("cooldown", out.Reason)
	s.NotEmpty(header.Get("Retry-After"))
}

func (s *HandlerSuite) TestCheckInRejectsUnknownMethod() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/"+s.eventID+"/checkins",
		CheckInRequest{Method: "bluetooth"}), s.user)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *HandlerSuite) TestOrganizerOnlyRoutes() {
	path := "/events/" + s.eventID
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, path + "/code"},
		{http.MethodPost, path + "/scan-tokens"},
		{http.MethodPost, path + "/ejections"},
	} {
		s.Run(route.method+" "+route.path, func() {
			req := testutil.AsUser(testutil.NewJSONRequest(s.T(), route.method, route.path, nil), s.user)
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
		})
	}

	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, path+"/risk", nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(0, testutil.UnmarshalResponse[RiskResponse](s.T(), rr).Ejections)
	s.Empty(s.auditActions(s.user))
}

func (s *HandlerSuite) TestCodeDisplayFeedsCodeCheckIn() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/"+s.eventID+"/code", nil), s.organizer)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	code := testutil.UnmarshalResponse[CodeResponse](s.T(), rr)
	s.Len(code.Code, 6)
	s.Greater(code.ValidUntilMs, s.now.UnixMilli())

	status, out, _ := s.checkIn(CheckInRequest{Method: "code", Code: code.Code})
	s.Equal(http.StatusCreated, status)
	s.Equal("succeeded", out.State)

	wrong := "000000"
	if code.Code == wrong {
		wrong = "111111"
	}
	status, out, _ = s.checkIn(CheckInRequest{Method: "code", Code: wrong})
	s.Equal(http.StatusForbidden, status)
	s.Equal("invalid_code", out.Reason)

	s.Equal([]string{string(audit.EventRotatingCodeRead)}, s.auditActions(s.organizer))
}

func (s *HandlerSuite) TestScanTokenFeedsTokenCheckIn() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/"+s.eventID+"/scan-tokens", nil), s.organizer)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	tok := testutil.UnmarshalResponse[ScanTokenResponse](s.T(), rr)
	s.Equal(s.now.UnixMilli(), tok.ValidFromMs)
	s.Equal(s.now.Add(DefaultScanTokenTTL).UnixMilli(), tok.ValidToMs)

	status, out, _ := s.checkIn(CheckInRequest{Method: "qr", Token: tok.Token})
	s.Equal(http.StatusCreated, status)
	s.Equal("succeeded", out.State)

	s.now = s.now.Add(DefaultScanTokenTTL + scantoken.DefaultClockSkew + time.Second)
	status, out, _ = s.checkIn(CheckInRequest{Method: "qr", Token: tok.Token})
	s.Equal(http.StatusForbidden, status)
	s.Equal("expired", out.Reason)
}

func (s *HandlerSuite) TestRemoteAppend() {
	path := "/events/" + s.eventID + "/ledger"
	payload, err := ledgermodels.MarshalPayloadJSON(ledgermodels.CheckInPayload{Method: "geo", OccurredAtMs: s.now.UnixMilli(), DistanceMeters: 1})
	s.Require().NoError(err)
	evidence := CheckInRequest{Method: "geo", Location: s.near()}
	post := func(body AppendRequest) *httptest.ResponseRecorder {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, path, body), s.user)
		return testutil.DoRequest(s.router, req)
	}

	s.Run("head of an empty chain is 204", func() {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger/head", nil), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNoContent, rr.Code)
	})

	rr := post(AppendRequest{Payload: payload, Evidence: evidence})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	first := testutil.UnmarshalResponse[ledgermodels.Entry](s.T(), rr)
	s.Equal(uint64(1), first.Sequence)
	written, ok := first.Payload.(ledgermodels.CheckInPayload)
	s.Require().True(ok)
	s.InDelta(20, written.DistanceMeters, 1)

	s.Run("stale previous hash is rejected", func() {
		rr := post(AppendRequest{Payload: payload, Evidence: evidence})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "integrity_error")
	})

	s.Run("fabricated previous hash is rejected", func() {
		rr := post(AppendRequest{PreviousHash: strings.Repeat("ab", 32), Payload: payload, Evidence: evidence})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "integrity_error")
	})

	s.Run("head links the next append", func() {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger/head", nil), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)
		head := testutil.UnmarshalResponse[ledgermodels.Entry](s.T(), rr)
		s.Equal(first.Hash, head.Hash)

		rr = post(AppendRequest{PreviousHash: head.Hash, Payload: payload, Evidence: evidence})
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
		s.Equal(uint64(2), testutil.UnmarshalResponse[ledgermodels.Entry](s.T(), rr).Sequence)
	})

	s.Run("payload is required", func() {
		rr := post(AppendRequest{Evidence: evidence})
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("evidence is required", func() {
		rr := post(AppendRequest{Payload: payload})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("evidence must prove the payload's method", func() {
		rr := post(AppendRequest{Payload: payload, Evidence: CheckInRequest{Method: "code", Code: "123456"}})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("offline sync payloads are refused", func() {
		synced, err := ledgermodels.MarshalPayloadJSON(ledgermodels.OfflineSyncPayload{QueueItemID: "q-1", Method: "geo", OccurredAtMs: 1})
		s.Require().NoError(err)
		rr := post(AppendRequest{Payload: synced, Evidence: evidence})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("evidence outside the geofence is refused", func() {
		s.now = s.now.Add(10 * time.Minute)
		far := geofence.Offset(festivalCenter, 500)
		rr := post(AppendRequest{Payload: payload, Evidence: CheckInRequest{Method: "geo", Location: &far}})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
		s.Contains(s.auditActions(s.user), string(audit.EventAttestationRefused))
	})

	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger", nil), s.user)
	rr = testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Len(testutil.UnmarshalResponse[LedgerResponse](s.T(), rr).Entries, 2)
}

func (s *HandlerSuite) TestOfflineTicketNeedsEvidence() {
	path := "/events/" + s.eventID + "/offline-tickets"

	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code, rr.Body.String())

	far := geofence.Offset(festivalCenter, 500)
	req = testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, path, CheckInRequest{Method: "geo", Location: &far}), s.user)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	req = testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, path, CheckInRequest{Method: "code", Code: "12ab"}), s.user)
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusForbidden, rr.Code, rr.Body.String())

	s.NotContains(s.auditActions(s.user), string(audit.EventTicketIssued))
}

func (s *HandlerSuite) TestOfflineTicketAndSync() {
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/"+s.eventID+"/offline-tickets",
		CheckInRequest{Method: "geo", Location: s.near()}), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	tk := testutil.UnmarshalResponse[TicketResponse](s.T(), rr)
	s.Equal(s.now.Add(24*time.Hour).UnixMilli(), tk.ExpiresAtMs)

	occurred := s.now.Add(10 * time.Minute)
	s.now = s.now.Add(time.Hour)
	body := SyncRequest{
		ID:           uuid.NewString(),
		EventID:      s.eventID,
		Method:       "geo",
		OccurredAtMs: occurred.UnixMilli(),
		QueuedAtMs:   occurred.UnixMilli(),
		Ticket:       tk.Ticket,
		RetryCount:   2,
	}
	req = testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sync", body), s.user)
	rr = testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	entry := testutil.UnmarshalResponse[ledgermodels.Entry](s.T(), rr)
	s.Equal(uint64(1), entry.Sequence)
	synced, ok := entry.Payload.(ledgermodels.OfflineSyncPayload)
	s.Require().True(ok)
	s.Equal(occurred.UnixMilli(), synced.OccurredAtMs)
	s.Equal(2, synced.RetryCount)
	s.Equal(body.ID, synced.QueueItemID)
	s.Equal([]string{
		string(audit.EventTicketIssued), string(audit.EventLedgerAppended), string(audit.EventOfflineSynced),
	}, s.auditActions(s.user))

	s.Run("replayed item answers with the first entry", func() {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sync", body), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Equal(entry.Hash, testutil.UnmarshalResponse[ledgermodels.Entry](s.T(), rr).Hash)

		req = testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger", nil), s.user)
		rr = testutil.DoRequest(s.router, req)
		s.Len(testutil.UnmarshalResponse[LedgerResponse](s.T(), rr).Entries, 1)
	})

	s.Run("another user's ticket is refused", func() {
		s.user = id.UserID(uuid.New())
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sync", body), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code, rr.Body.String())
	})

	s.Run("missing ticket is refused", func() {
		body.Ticket = ""
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sync", body), s.user)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code, rr.Body.String())
	})
}

func (s *HandlerSuite) TestVerifyReportsTampering() {
	at80 := geofence.Offset(festivalCenter, 80)
	for range 2 {
		status, _, _ := s.checkIn(CheckInRequest{Method: "geo", Location: &at80})
		s.Require().Equal(http.StatusCreated, status)
		s.now = s.now.Add(time.Minute)
	}

	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger/verify", nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.True(testutil.UnmarshalResponse[ledgermodels.VerifyReport](s.T(), rr).Valid)

	s.ledgerStore.sequence = 1
	req = testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/ledger/verify", nil), s.user)
	rr = testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusConflict, rr.Code)
	report := testutil.UnmarshalResponse[ledgermodels.VerifyReport](s.T(), rr)
	s.False(report.Valid)
	s.Equal(uint64(1), report.BrokenAt)
}

func (s *HandlerSuite) TestEjectionsRaiseRisk() {
	path := "/events/" + s.eventID
	for range 2 {
		req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodPost, path+"/ejections", nil), s.organizer)
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusNoContent, rr.Code)
	}
	req := testutil.AsUser(testutil.NewJSONRequest(s.T(), http.MethodGet, path+"/risk", nil), s.user)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	risk := testutil.UnmarshalResponse[RiskResponse](s.T(), rr)
	s.Equal(2, risk.Ejections)
	s.Equal(0, risk.Participants)
	s.Equal(2.0, risk.Rate)
	s.True(risk.HighRisk)
}
