package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/bytecraft/aira/internal/chat"
	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/log"
	"github.com/bytecraft/aira/internal/retrieval"
	"github.com/bytecraft/aira/internal/toolsource"
)

// stubStore is an in-memory chat.HistoryStore.
type stubStore struct {
	turns     map[string][]history.Turn
	appendErr error
}

func (s *stubStore) Append(_ context.Context, userID, role, content string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	if s.turns == nil {
		s.turns = make(map[string][]history.Turn)
	}
	s.turns[userID] = append(s.turns[userID], history.Turn{UserID: userID, Role: role, Content: content})
	return nil
}

func (s *stubStore) Read(_ context.Context, userID string) ([]history.Turn, error) {
	return s.turns[userID], nil
}

type stubRetriever struct{}

func (stubRetriever) Search(context.Context, string, ...retrieval.SearchOption) ([]retrieval.Hit, error) {
	return nil, nil
}

type stubToolSource struct{ err error }

func (s stubToolSource) Tools(context.Context) ([]ai.Tool, error) { return nil, s.err }

type stubReasoner struct{ reply string }

func (s stubReasoner) Run(context.Context, string, []ai.Tool, []*ai.Message) (string, error) {
	return s.reply, nil
}

func newTestServer(t *testing.T, store *stubStore, ts stubToolSource) *Server {
	t.Helper()
	svc, err := chat.New(store, stubRetriever{}, ts, stubReasoner{reply: "hello from aira"}, chat.Config{
		Logger: log.NewNop(),
	})
	if err != nil {
		t.Fatalf("chat.New() failed: %v", err)
	}

	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		ChatService: svc,
		CORSOrigins: []string{"http://localhost:4200"},
		RateBurst:   100,
	})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return srv
}

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// TestChatEndpointHappyPath tests the full request/response cycle.
func TestChatEndpointHappyPath(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(t, store, stubToolSource{})

	rec := postChat(t, srv, `{"userId":"alice","query":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.FinalReply != "hello from aira" {
		t.Errorf("finalReply = %q", resp.FinalReply)
	}

	if len(store.turns["alice"]) != 2 {
		t.Errorf("expected both turns persisted, got %d", len(store.turns["alice"]))
	}
}

// TestChatEndpointInvalidBody tests malformed JSON handling.
func TestChatEndpointInvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	rec := postChat(t, srv, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestChatEndpointMissingFields tests the InvalidRequest mapping.
func TestChatEndpointMissingFields(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	for _, body := range []string{`{}`, `{"userId":"alice"}`, `{"query":"hi"}`} {
		rec := postChat(t, srv, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		var e errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
			t.Fatalf("decoding error body: %v", err)
		}
		if e.Code != "invalid_request" {
			t.Errorf("error code = %q", e.Code)
		}
	}
}

// TestChatEndpointStorageDown tests the StorageUnavailable mapping.
func TestChatEndpointStorageDown(t *testing.T) {
	store := &stubStore{appendErr: fmt.Errorf("%w: down", history.ErrUnavailable)}
	srv := newTestServer(t, store, stubToolSource{})

	rec := postChat(t, srv, `{"userId":"alice","query":"hi"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	// Internal detail must not leak
	if strings.Contains(rec.Body.String(), "down") {
		t.Errorf("error detail leaked: %s", rec.Body)
	}
}

// TestChatEndpointToolSourceDown tests the ToolSourceUnavailable mapping.
func TestChatEndpointToolSourceDown(t *testing.T) {
	srv := newTestServer(t, &stubStore{},
		stubToolSource{err: fmt.Errorf("%w: refused", toolsource.ErrUnavailable)})

	rec := postChat(t, srv, `{"userId":"alice","query":"hi"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// TestHealthEndpoint tests the liveness probe.
func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

// TestCORSPreflight tests that allowed origins get CORS headers.
func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

// TestCORSUnknownOrigin tests that unknown origins get no CORS headers.
func TestCORSUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin should be empty for unknown origin, got %q", got)
	}
}

// TestRequestIDHeader tests that every response carries a request ID.
func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, stubToolSource{})

	rec := postChat(t, srv, `{"userId":"alice","query":"hi"}`)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
