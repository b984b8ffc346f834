package validator

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/futig/knowledge-console/internal/entity"
)

// ValidateQueryRequest checks a query before it is sent to the backend.
func ValidateQueryRequest(req *entity.QueryRequest) error {
	if req == nil {
		return entity.NewValidationError("query", "request is empty")
	}

	n := utf8.RuneCountInString(req.Query)
	if n < entity.MinQueryLength {
		return entity.NewValidationError("query", "must be at least %d characters, got %d", entity.MinQueryLength, n)
	}
	if n > entity.MaxQueryLength {
		return entity.NewValidationError("query", "must be at most %d characters, got %d", entity.MaxQueryLength, n)
	}

	if req.TopK != nil && (*req.TopK < entity.MinTopK || *req.TopK > entity.MaxTopK) {
		return entity.NewValidationError("top_k", "must be between %d and %d, got %d", entity.MinTopK, entity.MaxTopK, *req.TopK)
	}
	if req.KFinal != nil && (*req.KFinal < entity.MinKFinal || *req.KFinal > entity.MaxKFinal) {
		return entity.NewValidationError("k_final", "must be between %d and %d, got %d", entity.MinKFinal, entity.MaxKFinal, *req.KFinal)
	}

	return nil
}

type queryResponseWire struct {
	Answer     *string            `json:"answer"`
	Citations  *[]entity.Citation `json:"citations"`
	Confidence *float64           `json:"confidence"`
	Telemetry  *entity.Telemetry  `json:"telemetry"`
	Snippets   *[]json.RawMessage `json:"snippets"`
}

// DecodeQueryResponse enforces the required containers of a /query reply and
// decodes snippets leniently: a malformed optional field is dropped, not fatal.
func DecodeQueryResponse(raw []byte) (*entity.QueryResponse, error) {
	var wire queryResponseWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedReply, err)
	}

	switch {
	case wire.Answer == nil:
		return nil, fmt.Errorf("%w: missing answer", entity.ErrMalformedReply)
	case wire.Citations == nil:
		return nil, fmt.Errorf("%w: missing citations", entity.ErrMalformedReply)
	case wire.Confidence == nil:
		return nil, fmt.Errorf("%w: missing confidence", entity.ErrMalformedReply)
	case wire.Telemetry == nil:
		return nil, fmt.Errorf("%w: missing telemetry", entity.ErrMalformedReply)
	case wire.Snippets == nil:
		return nil, fmt.Errorf("%w: missing snippets", entity.ErrMalformedReply)
	}

	snippets := make([]entity.Snippet, 0, len(*wire.Snippets))
	for _, rawSnippet := range *wire.Snippets {
		if s, ok := decodeSnippet(rawSnippet); ok {
			snippets = append(snippets, s)
		}
	}

	return &entity.QueryResponse{
		Answer:     *wire.Answer,
		Citations:  *wire.Citations,
		Confidence: *wire.Confidence,
		Telemetry:  *wire.Telemetry,
		Snippets:   snippets,
	}, nil
}

func decodeSnippet(raw json.RawMessage) (entity.Snippet, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return entity.Snippet{}, false
	}

	s := entity.Snippet{
		Title:   stringField(fields, "title"),
		URL:     stringField(fields, "url"),
		Section: stringField(fields, "section"),
	}

	if rank, ok := fields["rank"].(float64); ok {
		s.Rank = int(rank)
	}
	if score, ok := fields["score"].(float64); ok {
		s.Score = &score
	}
	if text, ok := fields["text"].(string); ok {
		s.Text = &text
	}

	return s, true
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
