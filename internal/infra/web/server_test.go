package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/jobs"
)

type fakeDigests struct {
	lastCall    string
	lastSession uuid.UUID
	lastClass   string
	lastBaseURL string
	lastHints   []adapter.ClassHint
	err         error
}

func (f *fakeDigests) start(call string, sessionID uuid.UUID) (string, error) {
	f.lastCall = call
	f.lastSession = sessionID
	if f.err != nil {
		return "", f.err
	}
	return "job-" + call, nil
}

func (f *fakeDigests) StartObjectClassDigest(_ context.Context, sessionID uuid.UUID) (string, error) {
	return f.start("object-classes", sessionID)
}

func (f *fakeDigests) StartAttributeDigest(_ context.Context, sessionID uuid.UUID, objectClass string) (string, error) {
	f.lastClass = objectClass
	return f.start("attributes", sessionID)
}

func (f *fakeDigests) StartEndpointDigest(_ context.Context, sessionID uuid.UUID, objectClass, baseAPIURL string) (string, error) {
	f.lastClass = objectClass
	f.lastBaseURL = baseAPIURL
	return f.start("endpoints", sessionID)
}

func (f *fakeDigests) StartAuthDigest(_ context.Context, sessionID uuid.UUID) (string, error) {
	return f.start("auth-methods", sessionID)
}

func (f *fakeDigests) StartRelationDigest(_ context.Context, sessionID uuid.UUID, classes []adapter.ClassHint) (string, error) {
	f.lastHints = classes
	return f.start("relations", sessionID)
}

func (f *fakeDigests) StartInfoDigest(_ context.Context, sessionID uuid.UUID) (string, error) {
	return f.start("info", sessionID)
}

const testAPIKey = "test-key"

func newTestServer(t *testing.T) (*fakeDigests, *jobs.FileStore, http.Handler) {
	t.Helper()
	log := zerolog.Nop()
	store, err := jobs.NewFileStore(t.TempDir(), &log)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	digests := &fakeDigests{}
	srv := NewServer(digests, store, testAPIKey, &log)
	return digests, store, srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	_, _, h := newTestServer(t)
	sessionID := uuid.NewString()
	body := map[string]any{"sessionId": sessionID}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusForbidden},
		{"valid key", "Bearer " + testAPIKey, http.StatusAccepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := json.Marshal(body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/digests/object-classes", strings.NewReader(string(b)))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestStartDigestRoutes(t *testing.T) {
	digests, _, h := newTestServer(t)
	sessionID := uuid.New()

	cases := []struct {
		path string
		body map[string]any
		call string
	}{
		{"/api/v1/digests/object-classes", map[string]any{"sessionId": sessionID.String()}, "object-classes"},
		{"/api/v1/digests/attributes", map[string]any{"sessionId": sessionID.String(), "objectClass": "User"}, "attributes"},
		{"/api/v1/digests/endpoints", map[string]any{"sessionId": sessionID.String(), "objectClass": "User", "baseApiUrl": "https://api.example.com"}, "endpoints"},
		{"/api/v1/digests/auth-methods", map[string]any{"sessionId": sessionID.String()}, "auth-methods"},
		{"/api/v1/digests/relations", map[string]any{"sessionId": sessionID.String(), "classes": []map[string]string{{"name": "User"}}}, "relations"},
		{"/api/v1/digests/info", map[string]any{"sessionId": sessionID.String()}, "info"},
	}
	for _, tc := range cases {
		t.Run(tc.call, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tc.path, testAPIKey, tc.body)
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var resp digestStartResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.JobID != "job-"+tc.call {
				t.Errorf("jobId = %q", resp.JobID)
			}
			if digests.lastCall != tc.call || digests.lastSession != sessionID {
				t.Errorf("service saw call %q session %s", digests.lastCall, digests.lastSession)
			}
		})
	}

	if digests.lastClass != "User" || digests.lastBaseURL != "https://api.example.com" {
		t.Errorf("endpoint parameters not forwarded: %q %q", digests.lastClass, digests.lastBaseURL)
	}
	if len(digests.lastHints) != 1 || digests.lastHints[0].Name != "User" {
		t.Errorf("class hints not forwarded: %+v", digests.lastHints)
	}
}

func TestStartDigest_BadRequests(t *testing.T) {
	digests, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/digests/object-classes", testAPIKey, map[string]any{"sessionId": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad session id: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/digests/object-classes", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d", rec2.Code)
	}

	digests.err = fmt.Errorf("%w: objectClass is required", domain.ErrInvalidArgument)
	rec3 := doJSON(t, h, http.MethodPost, "/api/v1/digests/attributes", testAPIKey, map[string]any{"sessionId": uuid.NewString()})
	if rec3.Code != http.StatusBadRequest {
		t.Errorf("service validation error: status = %d", rec3.Code)
	}
}

func TestGetJob(t *testing.T) {
	_, store, h := newTestServer(t)

	jobID, err := store.Create(context.Background(), "digest_auth_methods", map[string]any{"sessionId": uuid.NewString()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/jobs/"+jobID, testAPIKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if got.ID != jobID || got.Status != "queued" || got.Type != "digest_auth_methods" {
		t.Errorf("unexpected job payload: %+v", got)
	}

	rec2 := doJSON(t, h, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), testAPIKey, nil)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("missing job: status = %d", rec2.Code)
	}
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}

	rec2 := doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	if rec2.Code != http.StatusOK {
		t.Errorf("metrics: status = %d", rec2.Code)
	}
}
