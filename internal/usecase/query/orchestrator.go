package query

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/conversation"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const failedResponseMessage = "Failed to get response"

// Result is the latest answered query, kept for the metrics bar and sources panel.
type Result struct {
	Query      string
	Response   *entity.QueryResponse
	Sources    []highlight.Source
	AnsweredAt time.Time
}

// InteractionID names this answer when rating it through feedback.
func (r *Result) InteractionID(sessionID string) string {
	return fmt.Sprintf("%s-%d", sessionID, r.AnsweredAt.UnixMilli())
}

// Orchestrator drives one session's question/answer lifecycle. At most one
// query is in flight at a time; a second Ask or Search while pending is
// rejected, not queued.
type Orchestrator struct {
	backend     Backend
	store       *conversation.Store
	highlighter *highlight.Highlighter
	cfg         config.QueryConfig
	now         func() time.Time

	pending atomic.Bool
	latest  atomic.Pointer[Result]
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithHighlighter(h *highlight.Highlighter) Option {
	return func(o *Orchestrator) {
		o.highlighter = h
	}
}

func NewOrchestrator(backend Backend, store *conversation.Store, cfg config.QueryConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:     backend,
		store:       store,
		highlighter: highlight.HTML(),
		cfg:         cfg,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ask sends a conversational question. The user message is appended before
// the call; exactly one assistant message (answer or error) follows it.
func (o *Orchestrator) Ask(ctx context.Context, text string) (*Result, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, entity.ErrEmptyQuery
	}

	if !o.pending.CompareAndSwap(false, true) {
		return nil, entity.ErrQueryInFlight
	}
	defer o.pending.Store(false)

	o.store.Append(entity.NewChatMessage(entity.RoleUser, text, o.now()))

	result, err := o.run(ctx, query, orDefault(o.cfg.ChatKFinal, entity.ConversationalKFinal))
	if err != nil {
		ctxzap.Warn(ctx, "query failed", zap.Error(err))
		o.store.Append(entity.NewChatMessage(entity.RoleAssistant, failureMessage(err), o.now()))
		return nil, err
	}

	o.store.Append(entity.NewChatMessage(entity.RoleAssistant, result.Response.Answer, result.AnsweredAt))
	o.latest.Store(result)
	return result, nil
}

// Search runs a standalone retrieval with a wider k_final. The conversation
// is not touched; on success the result becomes Latest.
func (o *Orchestrator) Search(ctx context.Context, text string) (*Result, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, entity.ErrEmptyQuery
	}

	if !o.pending.CompareAndSwap(false, true) {
		return nil, entity.ErrQueryInFlight
	}
	defer o.pending.Store(false)

	result, err := o.run(ctx, query, orDefault(o.cfg.SearchKFinal, entity.StandaloneSearchKFinal))
	if err != nil {
		ctxzap.Warn(ctx, "search failed", zap.Error(err))
		return nil, err
	}

	o.latest.Store(result)
	return result, nil
}

func (o *Orchestrator) IsPending() bool {
	return o.pending.Load()
}

// Latest returns the last successful result, or nil.
func (o *Orchestrator) Latest() *Result {
	return o.latest.Load()
}

// Reset forgets the latest result. Used when the conversation is cleared.
func (o *Orchestrator) Reset() {
	o.latest.Store(nil)
}

func (o *Orchestrator) run(ctx context.Context, query string, kFinal int) (*Result, error) {
	req := entity.NewQueryRequest(query, orDefault(o.cfg.TopK, entity.DefaultTopK), kFinal)
	if err := validator.ValidateQueryRequest(req); err != nil {
		return nil, err
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	resp, err := o.backend.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "query answered",
		zap.Int("citations", len(resp.Citations)),
		zap.Float64("confidence", resp.Confidence),
		zap.Int64("latency_ms", resp.Telemetry.LatencyMS),
	)

	return &Result{
		Query:      query,
		Response:   resp,
		Sources:    o.highlighter.Sources(query, resp.Citations, resp.Snippets),
		AnsweredAt: o.now(),
	}, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func failureMessage(err error) string {
	if err == nil || err.Error() == "" {
		return failedResponseMessage
	}
	return "Error: " + err.Error()
}
