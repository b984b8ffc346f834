package ingest

import "github.com/futig/knowledge-console/internal/entity"

type IngestPathsRequest struct {
	Paths          []string `json:"paths"`
	MaxChunkTokens *int     `json:"max_chunk_tokens,omitempty"`
	Overlap        *int     `json:"overlap,omitempty"`
}

type UploadResponseDTO struct {
	Result   *entity.IngestUploadResponse `json:"result"`
	Summary  string                       `json:"summary"`
	Rejected []string                     `json:"rejected,omitempty"`
}

type StatusDTO struct {
	Status *entity.IngestStatus `json:"status"`
	Cached bool                 `json:"cached"`
}
