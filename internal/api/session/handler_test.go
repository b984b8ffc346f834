package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/usecase/session"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type stubBackend struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
}

func (b *stubBackend) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	text := "Refunds are issued within 30 days of purchase."
	score := 0.91
	return &entity.QueryResponse{
		Answer:     "Refunds are available within 30 days.",
		Citations:  []entity.Citation{{Rank: 1, Title: "Refund Policy", URL: "https://example.com/refunds"}},
		Confidence: 0.82,
		Telemetry:  entity.Telemetry{LatencyMS: 120, TokensPrompt: 50, TokensCompletion: 10, CostUSD: 0.0004},
		Snippets:   []entity.Snippet{{Rank: 1, Title: "Refund Policy", URL: "https://example.com/refunds", Score: &score, Text: &text}},
	}, nil
}

func newTestServer(t *testing.T, backend *stubBackend) (http.Handler, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry(
		backend,
		config.QueryConfig{TopK: 20, ChatKFinal: 5, SearchKFinal: 10, Timeout: time.Second},
		config.SessionConfig{IdleTTL: time.Hour, CleanupInterval: time.Hour},
		zap.NewNop(),
	)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(registry, formatter.NewFactory()))
	return r, registry
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AskAppendsAndReturnsSources(t *testing.T) {
	h, registry := newTestServer(t, &stubBackend{})
	s := registry.Create(context.Background())

	rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"What is the refund policy?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AskResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message.Role != entity.RoleAssistant || resp.Result == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Result.ConfidenceLevel != entity.ConfidenceHigh {
		t.Errorf("unexpected level: %s", resp.Result.ConfidenceLevel)
	}
	if len(resp.Result.Sources) != 1 || !strings.Contains(resp.Result.Sources[0].Highlighted, "<mark>Refund</mark>") {
		t.Errorf("unexpected sources: %+v", resp.Result.Sources)
	}

	rec = do(t, h, http.MethodGet, "/sessions/"+s.ID+"/messages", "")
	var msgs MessagesDTO
	json.Unmarshal(rec.Body.Bytes(), &msgs)
	if len(msgs.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs.Messages))
	}
}

func TestHandler_AskBackendFailure(t *testing.T) {
	backend := &stubBackend{err: &pkghttp.HTTPError{StatusCode: 500, Message: "internal error"}}
	h, registry := newTestServer(t, backend)
	s := registry.Create(context.Background())

	rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"refund policy"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var resp AskResponseDTO
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message.Content != "Error: HTTP 500: internal error" {
		t.Errorf("unexpected appended message: %q", resp.Message.Content)
	}
	if s.Store.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", s.Store.Len())
	}
}

func TestHandler_AskBlankAndUnknownSession(t *testing.T) {
	h, registry := newTestServer(t, &stubBackend{})
	s := registry.Create(context.Background())

	if rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank text: expected 400, got %d", rec.Code)
	}
	if s.Store.Len() != 0 {
		t.Errorf("blank text should not append, got %d", s.Store.Len())
	}

	if rec := do(t, h, http.MethodGet, "/sessions/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: expected 404, got %d", rec.Code)
	}
}

func TestHandler_AskWhilePending(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	h, registry := newTestServer(t, backend)
	s := registry.Create(context.Background())

	done := make(chan int, 1)
	go func() {
		done <- do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"refund policy"}`).Code
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Queries.IsPending() {
		if time.Now().After(deadline) {
			t.Fatal("first ask never started")
		}
		time.Sleep(time.Millisecond)
	}

	if rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"shipping"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/clear", ""); rec.Code != http.StatusConflict {
		t.Errorf("clear while pending: expected 409, got %d", rec.Code)
	}

	close(backend.block)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first ask: expected 200, got %d", code)
	}
}

func TestHandler_SourcesAndExport(t *testing.T) {
	h, registry := newTestServer(t, &stubBackend{})
	s := registry.Create(context.Background())

	if rec := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/sources", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 before any answer, got %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/sessions/"+s.ID+"/messages", `{"text":"refund policy"}`)

	if rec := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/sources", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/export?format=md", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".md") {
		t.Errorf("unexpected disposition: %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "refund policy") {
		t.Errorf("transcript missing question: %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/export?format=txt", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rec.Code)
	}
}

func TestHandler_SearchLeavesConversation(t *testing.T) {
	h, registry := newTestServer(t, &stubBackend{})
	s := registry.Create(context.Background())

	rec := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/search", `{"text":"refund"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if s.Store.Len() != 0 {
		t.Errorf("search should not touch the conversation, got %d messages", s.Store.Len())
	}
}

func TestHandler_CreateAndEnd(t *testing.T) {
	h, registry := newTestServer(t, &stubBackend{})

	rec := do(t, h, http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var dto SessionDTO
	json.Unmarshal(rec.Body.Bytes(), &dto)
	if dto.ID == "" {
		t.Fatal("missing session id")
	}

	if rec := do(t, h, http.MethodDelete, "/sessions/"+dto.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if registry.Len() != 0 {
		t.Errorf("session not discarded")
	}
}
