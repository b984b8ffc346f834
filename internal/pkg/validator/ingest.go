package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
)

// Validator applies the configured upload limits at the points where files are selected.
type Validator struct {
	cfg config.UploadConfig
}

func NewFileValidator(cfg config.UploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks count and size limits of an already filtered batch.
func (v *Validator) ValidateUpload(files []entity.FileData) error {
	if len(files) == 0 {
		return entity.ErrEmptySubmission
	}

	if v.cfg.MaxFileCount > 0 && len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	for _, f := range files {
		if v.cfg.MaxFileSize > 0 && int64(len(f.Content)) > v.cfg.MaxFileSize {
			return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, f.Filename, len(f.Content), v.cfg.MaxFileSize)
		}
	}

	return nil
}

// IsSupportedFile reports whether name carries one of the ingestible extensions.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range entity.SupportedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FilterSupportedFiles keeps only ingestible files, preserving order, and
// returns the names that were dropped.
func FilterSupportedFiles(files []entity.FileData) (kept []entity.FileData, rejected []string) {
	for _, f := range files {
		if IsSupportedFile(f.Filename) {
			kept = append(kept, f)
		} else {
			rejected = append(rejected, f.Filename)
		}
	}
	return kept, rejected
}

// ValidateIngestRequest checks a path ingestion request before it is sent.
func ValidateIngestRequest(req *entity.IngestRequest) error {
	if req == nil {
		return entity.NewValidationError("paths", "request is empty")
	}

	hasPath := false
	for _, p := range req.Paths {
		if strings.TrimSpace(p) != "" {
			hasPath = true
			break
		}
	}
	if !hasPath {
		return entity.NewValidationError("paths", "at least one path is required")
	}

	return ValidateChunking(req.MaxChunkTokens, req.Overlap)
}

func ValidateChunking(maxChunkTokens, overlap int) error {
	if maxChunkTokens <= 0 {
		return entity.NewValidationError("max_chunk_tokens", "must be positive, got %d", maxChunkTokens)
	}
	if overlap < 0 || overlap >= maxChunkTokens {
		return entity.NewValidationError("overlap", "must be in [0, %d), got %d", maxChunkTokens, overlap)
	}
	return nil
}
