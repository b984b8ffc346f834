package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/futig/knowledge-console/internal/entity"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 2000
)

func ValidateFeedback(req *entity.FeedbackRequest) error {
	if req == nil || strings.TrimSpace(req.InteractionID) == "" {
		return entity.NewValidationError("interaction_id", "is required")
	}
	if req.Rating < minRating || req.Rating > maxRating {
		return entity.NewValidationError("rating", "must be between %d and %d, got %d", minRating, maxRating, req.Rating)
	}
	if req.Comment != nil && utf8.RuneCountInString(*req.Comment) > maxCommentLength {
		return entity.NewValidationError("comment", "must be at most %d characters", maxCommentLength)
	}
	return nil
}
