package entity

const (
	DefaultMaxChunkTokens = 512
	DefaultOverlap        = 64

	IngestStatusOK = "ok"
)

// SupportedExtensions is the upload allow-list applied where files are selected.
var SupportedExtensions = []string{".md", ".markdown", ".pdf", ".html", ".htm"}

type IngestRequest struct {
	Paths          []string `json:"paths"`
	MaxChunkTokens int      `json:"max_chunk_tokens"`
	Overlap        int      `json:"overlap"`
}

type FileData struct {
	Filename string
	Content  []byte
}

type IngestUploadRequest struct {
	Files          []FileData
	MaxChunkTokens int
	Overlap        int
}

type IngestUploadResponse struct {
	Status          string            `json:"status"`
	Message         string            `json:"message,omitempty"`
	FilesProcessed  *int              `json:"files_processed,omitempty"`
	Filenames       []string          `json:"filenames,omitempty"`
	DocumentsAdded  *int              `json:"documents_added,omitempty"`
	ChunksAdded     *int              `json:"chunks_added,omitempty"`
	TotalDocuments  *int              `json:"total_documents,omitempty"`
	TotalChunks     *int              `json:"total_chunks,omitempty"`
	RecentDocuments []DocumentSummary `json:"recent_documents,omitempty"`
}

type DocumentSummary struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Source     string     `json:"source"`
	URL        string     `json:"url,omitempty"`
	CreatedAt  *Timestamp `json:"created_at"`
	ChunkCount int        `json:"chunk_count"`
}

type IngestStatus struct {
	Status         string            `json:"status"`
	TotalDocuments int               `json:"total_documents"`
	TotalChunks    int               `json:"total_chunks"`
	Documents      []DocumentSummary `json:"documents"`
}

// StatusResponse is the {status} body of health, ingest, rebuild and feedback calls.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type FeedbackRequest struct {
	InteractionID string  `json:"interaction_id"`
	Rating        int     `json:"rating"`
	Comment       *string `json:"comment,omitempty"`
}

// ErrorResponse is the body of local HTTP API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
