package session

import (
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
	"github.com/futig/knowledge-console/internal/usecase/query"
	"github.com/futig/knowledge-console/internal/usecase/session"
)

type SessionDTO struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Pending      bool      `json:"pending"`
}

type AskRequest struct {
	Text string `json:"text"`
}

type MessagesDTO struct {
	Messages []entity.ChatMessage `json:"messages"`
	Pending  bool                 `json:"pending"`
}

type ResultDTO struct {
	InteractionID   string                 `json:"interaction_id"`
	Query           string                 `json:"query"`
	Answer          string                 `json:"answer"`
	Citations       []entity.Citation      `json:"citations"`
	Confidence      float64                `json:"confidence"`
	ConfidenceLevel entity.ConfidenceLevel `json:"confidence_level"`
	Telemetry       entity.Telemetry       `json:"telemetry"`
	Sources         []highlight.Source     `json:"sources"`
	AnsweredAt      time.Time              `json:"answered_at"`
}

// AskResponseDTO carries the assistant message appended by the ask, plus the
// full result on success or the error on failure.
type AskResponseDTO struct {
	Message entity.ChatMessage `json:"message"`
	Result  *ResultDTO         `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func toSessionDTO(s *session.Session) *SessionDTO {
	return &SessionDTO{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		MessageCount: s.Store.Len(),
		Pending:      s.Queries.IsPending(),
	}
}

func toResultDTO(r *query.Result, sessionID string) *ResultDTO {
	if r == nil {
		return nil
	}
	return &ResultDTO{
		InteractionID:   r.InteractionID(sessionID),
		Query:           r.Query,
		Answer:          r.Response.Answer,
		Citations:       r.Response.Citations,
		Confidence:      r.Response.Confidence,
		ConfidenceLevel: entity.ConfidenceLevelOf(r.Response.Confidence),
		Telemetry:       r.Response.Telemetry,
		Sources:         r.Sources,
		AnsweredAt:      r.AnsweredAt,
	}
}
