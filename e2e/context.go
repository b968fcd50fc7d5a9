package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestContext holds per-scenario state: the acting user, the organizer of
// the event under test and the last response.
type TestContext struct {
	baseURL    string
	httpClient *http.Client

	userID      string
	organizerID string
	eventID     string
	values      map[string]string

	lastStatus int
	lastBody   []byte
	lastHeader http.Header
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userID:      uuid.NewString(),
		organizerID: uuid.NewString(),
		values:      map[string]string{},
	}
}

func (tc *TestContext) POST(path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", tc.userID)

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// GetResponseField reads a dotted path such as "entry.sequence" from the last
// JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var body interface{}
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not JSON (status %d): %s", tc.lastStatus, tc.lastBody)
	}
	current := body
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
		}
	}
	return current, nil
}

func (tc *TestContext) GetLastResponseStatus() int       { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte      { return tc.lastBody }
func (tc *TestContext) GetLastHeader(name string) string { return tc.lastHeader.Get(name) }

func (tc *TestContext) GetUserID() string { return tc.userID }

// NewUser switches the scenario to a fresh attendee.
func (tc *TestContext) NewUser() { tc.userID = uuid.NewString() }

// AsOrganizer runs fn acting as the event organizer, then switches back.
func (tc *TestContext) AsOrganizer(fn func() error) error {
	attendee := tc.userID
	tc.userID = tc.organizerID
	defer func() { tc.userID = attendee }()
	return fn()
}

func (tc *TestContext) GetEventID() string        { return tc.eventID }
func (tc *TestContext) SetEventID(eventID string) { tc.eventID = eventID }

// Save and Load carry values such as codes and tokens between steps.
func (tc *TestContext) Save(key, value string) { tc.values[key] = value }
func (tc *TestContext) Load(key string) string { return tc.values[key] }
