// Package remote is the agent's HTTP client for the presence server. It
// implements the coordinator's RemoteLedger and EventDirectory ports and the
// offline queue's sync operation.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"presence/internal/checkin/handler"
	"presence/internal/checkin/models"
	eventmodels "presence/internal/event/models"
	"presence/internal/ledger/chain"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	offlineports "presence/internal/offlinequeue/ports"
	"presence/internal/verification"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/middleware/actor"
	"presence/pkg/platform/sentinel"
)

const (
	defaultTimeout   = 10 * time.Second
	eventCachePrefix = "presence/event:"
)

// Client talks to the server on behalf of one user.
type Client struct {
	baseURL    string
	userID     id.UserID
	userAgent  string
	httpClient *http.Client
	cache      offlineports.Storage
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithEventCache keeps the last fetched profile of each event in device
// storage so geofence check-ins still verify while the server is unreachable.
func WithEventCache(storage offlineports.Storage) Option {
	return func(cl *Client) {
		cl.cache = storage
	}
}

func New(baseURL string, userID id.UserID, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("server URL is required")
	}
	if userID.IsNil() {
		return nil, errors.New("user id is required")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Head returns the user's chain head, or nil for an empty chain.
func (c *Client) Head(ctx context.Context, userID id.UserID) (*ledgermodels.Entry, error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}
	var entry ledgermodels.Entry
	status, err := c.do(ctx, http.MethodGet, "/ledger/head", nil, &entry)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &entry, nil
}

// Append sends the entry with the evidence the device verified, which the
// server checks again before writing.
func (c *Client) Append(ctx context.Context, req ledgermodels.AppendRequest, evidence models.Evidence) (*ledgermodels.Entry, error) {
	if err := c.checkUser(req.UserID); err != nil {
		return nil, err
	}
	checkIn, ok := req.Payload.(ledgermodels.CheckInPayload)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "only checkin payloads can be appended")
	}
	payload, err := ledgermodels.MarshalPayloadJSON(checkIn)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid payload")
	}
	body := handler.AppendRequest{
		PreviousHash: req.PreviousHash,
		Payload:      payload,
		Evidence: handler.NewCheckInRequest(models.Request{
			Method:   models.Method(checkIn.Method),
			Evidence: evidence,
		}),
	}
	var entry ledgermodels.Entry
	if _, err := c.do(ctx, http.MethodPost, "/events/"+req.EventID.String()+"/ledger", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Get fetches the event profile. When the server is unreachable the cached
// profile is served instead.
func (c *Client) Get(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	var resp handler.EventResponse
	_, err := c.do(ctx, http.MethodGet, "/events/"+eventID.String(), nil, &resp)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			if cached, cerr := c.cachedEvent(ctx, eventID); cerr == nil {
				c.logger.InfoContext(ctx, "serving cached event profile", "event_id", eventID.String())
				return cached, nil
			}
		}
		return nil, err
	}
	if c.cache != nil {
		if raw, merr := json.Marshal(resp); merr == nil {
			if serr := c.cache.Set(ctx, eventCachePrefix+eventID.String(), string(raw)); serr != nil {
				c.logger.WarnContext(ctx, "failed to cache event profile", "event_id", eventID.String(), "error", serr)
			}
		}
	}
	return toEvent(resp)
}

// CheckIn asks the server to run the attempt. Refused attempts come back as
// outcomes, not errors.
func (c *Client) CheckIn(ctx context.Context, req models.Request) (*models.Outcome, error) {
	if err := c.checkUser(req.UserID); err != nil {
		return nil, err
	}
	var resp handler.OutcomeResponse
	status, raw, err := c.send(ctx, http.MethodPost, "/events/"+req.EventID.String()+"/checkins", handler.NewCheckInRequest(req))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.State == "" {
		return nil, c.decodeError(status, raw)
	}
	return toOutcome(resp), nil
}

// Sync uploads one queued check-in. It has the offline queue's SyncFunc shape.
func (c *Client) Sync(ctx context.Context, item offlinemodels.QueuedCheckin) error {
	if err := c.checkUser(item.UserID); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/sync", handler.NewSyncRequest(item), nil)
	return err
}

// IssueTicket fetches an offline ticket for the attempt's event. The server
// grants it only when the attempt's evidence verifies.
func (c *Client) IssueTicket(ctx context.Context, req models.Request) (*offlinemodels.StoredTicket, error) {
	if err := c.checkUser(req.UserID); err != nil {
		return nil, err
	}
	var resp handler.TicketResponse
	if _, err := c.do(ctx, http.MethodPost, "/events/"+req.EventID.String()+"/offline-tickets", handler.NewCheckInRequest(req), &resp); err != nil {
		return nil, err
	}
	return &offlinemodels.StoredTicket{Ticket: resp.Ticket, ExpiresAt: time.UnixMilli(resp.ExpiresAtMs)}, nil
}

func (c *Client) ListLedger(ctx context.Context) ([]*ledgermodels.Entry, error) {
	var resp handler.LedgerResponse
	if _, err := c.do(ctx, http.MethodGet, "/ledger", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// VerifyLedger returns the server's chain report. A broken chain is a report
// with Valid false, not an error.
func (c *Client) VerifyLedger(ctx context.Context) (*ledgermodels.VerifyReport, error) {
	status, raw, err := c.send(ctx, http.MethodGet, "/ledger/verify", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return nil, c.decodeError(status, raw)
	}
	var report ledgermodels.VerifyReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode verify report: %w", err)
	}
	report.UserID = c.userID
	return &report, nil
}

func (c *Client) checkUser(userID id.UserID) error {
	if userID != c.userID {
		return dErrors.New(dErrors.CodeForbidden, "client acts for a different user")
	}
	return nil
}

// do sends the request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	status, raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	if status < 200 || status > 299 {
		return status, c.decodeError(status, raw)
	}
	if out != nil && status != http.StatusNoContent && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return status, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return status, nil
}

// send performs the round trip. Network failures and gateway-class statuses
// are reported as sentinel.ErrUnavailable.
func (c *Client) send(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(actor.HeaderUserID, c.userID.String())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s response: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return resp.StatusCode, raw, fmt.Errorf("%s %s returned %d: %w", method, path, resp.StatusCode, sentinel.ErrUnavailable)
	}
	return resp.StatusCode, raw, nil
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// decodeError rebuilds the server's domain error. A previous-hash mismatch
// keeps its verification reason so the coordinator reports it as such.
func (c *Client) decodeError(status int, raw []byte) error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("server returned %d", status))
	}
	code := dErrors.Code(body.Error)
	if code == dErrors.CodeIntegrity {
		return chain.ErrInvalidPreviousHash(body.ErrorDescription)
	}
	if code == dErrors.CodeNotFound {
		return dErrors.Wrap(sentinel.ErrNotFound, code, body.ErrorDescription)
	}
	return dErrors.New(code, body.ErrorDescription)
}

func (c *Client) cachedEvent(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	if c.cache == nil {
		return nil, sentinel.ErrNotFound
	}
	raw, err := c.cache.Get(ctx, eventCachePrefix+eventID.String())
	if err != nil {
		return nil, err
	}
	var resp handler.EventResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode cached event: %w", err)
	}
	return toEvent(resp)
}

func toEvent(r handler.EventResponse) (*eventmodels.Event, error) {
	eventID, err := id.ParseEventID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("server sent invalid event id: %w", err)
	}
	e := &eventmodels.Event{
		ID:              eventID,
		Name:            r.Name,
		Center:          r.Center,
		RadiusMeters:    r.RadiusMeters,
		CodeStepSeconds: r.CodeStepSeconds,
		CodeDigits:      r.CodeDigits,
		Participants:    r.Participants,
		Ejections:       r.Ejections,
	}
	if r.StartsAtMs != 0 {
		e.StartsAt = time.UnixMilli(r.StartsAtMs)
	}
	if r.EndsAtMs != 0 {
		e.EndsAt = time.UnixMilli(r.EndsAtMs)
	}
	return e, nil
}

func toOutcome(r handler.OutcomeResponse) *models.Outcome {
	out := &models.Outcome{
		State:          models.State(r.State),
		Method:         models.Method(r.Method),
		Reason:         verification.Reason(r.Reason),
		Entry:          r.Entry,
		QueueItemID:    r.QueueItemID,
		DistanceMeters: r.DistanceMeters,
		Remaining:      r.Remaining,
	}
	if r.RetryAtMs != 0 {
		out.RetryAt = time.UnixMilli(r.RetryAtMs)
	}
	for _, s := range r.History {
		out.History = append(out.History, models.State(s))
	}
	return out
}
