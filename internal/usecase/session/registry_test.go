package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"go.uber.org/zap"
)

type stubBackend struct{}

func (stubBackend) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error) {
	return &entity.QueryResponse{Answer: "ok", Citations: []entity.Citation{}, Snippets: []entity.Snippet{}}, nil
}

func newRegistry(t *testing.T, ttl time.Duration) *Registry {
	return NewRegistry(
		stubBackend{},
		config.QueryConfig{TopK: 20, ChatKFinal: 5, SearchKFinal: 10, Timeout: time.Second},
		config.SessionConfig{IdleTTL: ttl, CleanupInterval: time.Millisecond},
		zap.NewNop(),
	)
}

func TestRegistry_CreateGetEnd(t *testing.T) {
	r := newRegistry(t, time.Hour)
	ctx := context.Background()

	s := r.Create(ctx)
	if s.ID == "" || s.Store == nil || s.Queries == nil {
		t.Fatalf("incomplete session: %+v", s)
	}

	got, err := r.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("get returned %v, %v", got, err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}

	if err := r.End(ctx, s.ID); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, entity.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.End(ctx, s.ID); !errors.Is(err, entity.ErrSessionNotFound) {
		t.Errorf("second end should fail, got %v", err)
	}
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := newRegistry(t, time.Hour)
	ctx := context.Background()

	a := r.Create(ctx)
	b := r.Create(ctx)

	if _, err := a.Queries.Ask(ctx, "refund policy"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if a.Store.Len() != 2 || b.Store.Len() != 0 {
		t.Errorf("history leaked between sessions: a=%d b=%d", a.Store.Len(), b.Store.Len())
	}
}

func TestRegistry_Ensure(t *testing.T) {
	r := newRegistry(t, time.Hour)
	ctx := context.Background()

	first := r.Ensure(ctx, "chat-42")
	second := r.Ensure(ctx, "chat-42")
	if first != second {
		t.Error("ensure should return the existing session")
	}
	if first.ID != "chat-42" {
		t.Errorf("unexpected id: %s", first.ID)
	}
}

func TestRegistry_SettleStoresWhenWinnerIsGone(t *testing.T) {
	r := newRegistry(t, time.Hour)

	// the entry that won Add was ended before the loser could read it
	s := r.newSession("chat-7")
	got := r.settle("chat-7", s)
	if got != s {
		t.Fatalf("expected the new session, got %v", got)
	}
	if stored, err := r.Get("chat-7"); err != nil || stored != s {
		t.Errorf("session was not stored: %v, %v", stored, err)
	}
}

func TestRegistry_SettleKeepsLiveWinner(t *testing.T) {
	r := newRegistry(t, time.Hour)
	winner := r.Ensure(context.Background(), "chat-7")

	if got := r.settle("chat-7", r.newSession("chat-7")); got != winner {
		t.Error("settle should return the session already stored")
	}
}

func TestRegistry_EnsureConcurrentNeverNil(t *testing.T) {
	r := newRegistry(t, time.Hour)
	ctx := context.Background()

	const callers = 16
	got := make(chan *Session, callers)
	for i := 0; i < callers; i++ {
		go func() {
			s := r.Ensure(ctx, "chat-9")
			// ending races later callers into the settle path
			_ = r.End(ctx, "chat-9")
			got <- s
		}()
	}
	for i := 0; i < callers; i++ {
		if s := <-got; s == nil {
			t.Fatal("ensure returned nil")
		}
	}
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r := newRegistry(t, 20*time.Millisecond)
	s := r.Create(context.Background())

	time.Sleep(60 * time.Millisecond)
	if _, err := r.Get(s.ID); !errors.Is(err, entity.ErrSessionNotFound) {
		t.Errorf("expected idle session to expire, got %v", err)
	}
}

func TestSession_Clear(t *testing.T) {
	r := newRegistry(t, time.Hour)
	ctx := context.Background()
	s := r.Create(ctx)

	s.Queries.Ask(ctx, "refund policy")
	if err := s.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if s.Store.Len() != 0 || s.Queries.Latest() != nil {
		t.Errorf("clear left state behind: messages=%d latest=%v", s.Store.Len(), s.Queries.Latest())
	}
}
