package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/pkg/logger"
	"github.com/futig/knowledge-console/internal/pkg/response"
	"github.com/futig/knowledge-console/internal/usecase/session"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	registry   SessionRegistry
	formatters *formatter.Factory
}

func NewHandler(registry SessionRegistry, formatters *formatter.Factory) *Handler {
	return &Handler{
		registry:   registry,
		formatters: formatters,
	}
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")

	s := h.registry.Create(ctx)
	response.Created(w, toSessionDTO(s))
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "GetSession")
	if !ok {
		return
	}

	ctxzap.Debug(ctx, "session fetched")
	response.Success(w, toSessionDTO(s))
}

// EndSession handles DELETE /sessions/{id}
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "EndSession"),
	)

	if err := h.registry.End(ctx, sessionID); err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.NoContent(w)
}

// ClearSession handles POST /sessions/{id}/clear
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "ClearSession")
	if !ok {
		return
	}

	if err := s.Clear(); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "conversation cleared")
	response.Success(w, toSessionDTO(s))
}

// GetMessages handles GET /sessions/{id}/messages
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r, "GetMessages")
	if !ok {
		return
	}

	response.Success(w, MessagesDTO{
		Messages: s.Store.Messages(),
		Pending:  s.Queries.IsPending(),
	})
}

// Ask handles POST /sessions/{id}/messages. The request blocks until the
// backend answers; a second ask while one is pending gets 409.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "Ask")
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	before := s.Store.Len()
	result, err := s.Queries.Ask(ctx, req.Text)
	if err != nil {
		// Rejected before anything was appended: plain error.
		if errors.Is(err, entity.ErrEmptyQuery) || errors.Is(err, entity.ErrQueryInFlight) || s.Store.Len() == before {
			response.HandleError(ctx, w, err)
			return
		}

		status, _ := response.Classify(err)
		ctxzap.Warn(ctx, "ask failed", zap.Error(err))
		response.JSON(w, status, AskResponseDTO{
			Message: lastMessage(s),
			Error:   err.Error(),
		})
		return
	}

	response.Success(w, AskResponseDTO{
		Message: lastMessage(s),
		Result:  toResultDTO(result, s.ID),
	})
}

// Search handles POST /sessions/{id}/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "Search")
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := s.Queries.Search(ctx, req.Text)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.Success(w, toResultDTO(result, s.ID))
}

// GetSources handles GET /sessions/{id}/sources - latest result
func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.session(w, r, "GetSources")
	if !ok {
		return
	}

	latest := s.Queries.Latest()
	if latest == nil {
		response.NoContent(w)
		return
	}
	response.Success(w, toResultDTO(latest, s.ID))
}

// Export handles GET /sessions/{id}/export?format=md|pdf|docx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, s, ok := h.session(w, r, "Export")
	if !ok {
		return
	}

	format, err := entity.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	f, err := h.formatters.Create(format)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	transcript := &entity.Transcript{
		SessionID:  s.ID,
		ExportedAt: time.Now(),
		Messages:   s.Store.Messages(),
	}

	body, err := f.Format(transcript)
	if err != nil {
		response.Error(ctx, w, http.StatusInternalServerError, "failed to render transcript", err)
		return
	}

	ctxzap.Info(ctx, "transcript exported",
		zap.String("format", string(format)),
		zap.Int("messages", len(transcript.Messages)),
	)
	response.Attachment(w, f.ContentType(), formatter.FileName(transcript, f), body)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, action string) (ctx context.Context, s *session.Session, ok bool) {
	sessionID := chi.URLParam(r, "id")
	ctx = logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", action),
	)

	s, err := h.registry.Get(sessionID)
	if err != nil {
		response.HandleError(ctx, w, err)
		return ctx, nil, false
	}
	return ctx, s, true
}

func lastMessage(s *session.Session) entity.ChatMessage {
	msgs := s.Store.Messages()
	if len(msgs) == 0 {
		return entity.ChatMessage{}
	}
	return msgs[len(msgs)-1]
}
