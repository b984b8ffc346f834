package session

import (
	"context"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/usecase/conversation"
	"github.com/futig/knowledge-console/internal/usecase/query"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Session is the state owned by one interactive user: the conversation and
// the orchestrator that writes to it. Nothing outlives the session.
type Session struct {
	ID        string
	CreatedAt time.Time
	Store     *conversation.Store
	Queries   *query.Orchestrator
}

// Clear empties the conversation and forgets the latest result. It is
// refused while a query is in flight so the pending answer cannot land in a
// cleared timeline.
func (s *Session) Clear() error {
	if s.Queries.IsPending() {
		return entity.ErrQueryInFlight
	}
	s.Store.Clear()
	s.Queries.Reset()
	return nil
}

// Registry creates sessions and discards them on End or after SESSION_IDLE_TTL
// without access.
type Registry struct {
	backend  query.Backend
	queryCfg config.QueryConfig
	opts     []query.Option
	ttl      time.Duration
	sessions *cache.Cache
	logger   *zap.Logger
}

func NewRegistry(
	backend query.Backend,
	queryCfg config.QueryConfig,
	sessionCfg config.SessionConfig,
	logger *zap.Logger,
	opts ...query.Option,
) *Registry {
	ttl := sessionCfg.IdleTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	r := &Registry{
		backend:  backend,
		queryCfg: queryCfg,
		opts:     opts,
		ttl:      ttl,
		sessions: cache.New(ttl, sessionCfg.CleanupInterval),
		logger:   logger,
	}
	r.sessions.OnEvicted(func(id string, _ interface{}) {
		logger.Debug("session discarded", zap.String("session_id", id))
	})
	return r
}

// Create starts a new session with a random ID.
func (r *Registry) Create(ctx context.Context) *Session {
	s := r.newSession(uuid.NewString())
	r.sessions.SetDefault(s.ID, s)

	ctxzap.Info(ctx, "session created", zap.String("session_id", s.ID))
	return s
}

// Ensure returns the session stored under id, creating it when absent.
// Surfaces with their own stable identity (a chat, a terminal) use it.
func (r *Registry) Ensure(ctx context.Context, id string) *Session {
	if s, err := r.Get(id); err == nil {
		return s
	}

	s := r.newSession(id)
	if err := r.sessions.Add(id, s, cache.DefaultExpiration); err != nil {
		// lost a race with a concurrent Ensure
		if winner := r.settle(id, s); winner != s {
			return winner
		}
	}

	ctxzap.Info(ctx, "session created", zap.String("session_id", id))
	return s
}

// settle returns the session now stored under id, storing s when the
// entry that beat it to Add has already expired or ended.
func (r *Registry) settle(id string, s *Session) *Session {
	if existing, err := r.Get(id); err == nil {
		return existing
	}
	r.sessions.SetDefault(id, s)
	return s
}

// Get returns a live session and extends its idle deadline.
func (r *Registry) Get(id string) (*Session, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	s := v.(*Session)
	r.sessions.SetDefault(id, s)
	return s, nil
}

// End discards a session and its history.
func (r *Registry) End(ctx context.Context, id string) error {
	if _, ok := r.sessions.Get(id); !ok {
		return entity.ErrSessionNotFound
	}
	r.sessions.Delete(id)

	ctxzap.Info(ctx, "session ended", zap.String("session_id", id))
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

func (r *Registry) newSession(id string) *Session {
	store := conversation.NewStore()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Store:     store,
		Queries:   query.NewOrchestrator(r.backend, store, r.queryCfg, r.opts...),
	}
}
