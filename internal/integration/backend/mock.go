package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type mockDocument struct {
	title   string
	url     string
	section string
	text    string
}

var mockCorpus = []mockDocument{
	{
		title:   "Refund Policy",
		url:     "https://docs.example.com/billing/refunds",
		section: "Eligibility",
		text:    "Refunds are available within 30 days of purchase. Refund requests must include the order number.",
	},
	{
		title:   "Shipping Guide",
		url:     "https://docs.example.com/shipping",
		section: "Delivery times",
		text:    "Standard shipping takes 3 to 5 business days. Express shipping arrives the next business day.",
	},
	{
		title:   "Account Security",
		url:     "https://docs.example.com/account/security",
		section: "Passwords",
		text:    "Passwords must be at least 12 characters. Two factor authentication is recommended for every account.",
	},
}

// MockConnector answers from a small built-in corpus and keeps ingestion
// totals in memory. Used when ENABLE_MOCKS is set.
type MockConnector struct {
	logger *zap.Logger

	mu        sync.Mutex
	documents []entity.DocumentSummary
	chunks    int
	nextID    int64
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	m := &MockConnector{logger: logger}
	for _, doc := range mockCorpus {
		m.addDocument(doc.title, doc.url, 1)
	}
	return m
}

func (m *MockConnector) BaseURL() string {
	return "mock://backend"
}

func (m *MockConnector) Health(ctx context.Context) (*entity.StatusResponse, error) {
	return &entity.StatusResponse{Status: entity.IngestStatusOK}, nil
}

func (m *MockConnector) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error) {
	ctxzap.Info(ctx, "[MOCK] answering query", zap.String("query", req.Query))
	start := time.Now()

	limit := entity.ConversationalKFinal
	if req.KFinal != nil {
		limit = *req.KFinal
	}

	terms := strings.Fields(strings.ToLower(req.Query))
	resp := &entity.QueryResponse{
		Citations: []entity.Citation{},
		Snippets:  []entity.Snippet{},
	}

	for _, doc := range mockCorpus {
		if len(resp.Citations) >= limit {
			break
		}
		score := matchScore(doc.text, terms)
		if score == 0 {
			continue
		}

		rank := len(resp.Citations) + 1
		text := doc.text
		resp.Citations = append(resp.Citations, entity.Citation{Rank: rank, Title: doc.title, URL: doc.url})
		resp.Snippets = append(resp.Snippets, entity.Snippet{
			Rank:    rank,
			Title:   doc.title,
			URL:     doc.url,
			Section: doc.section,
			Score:   &score,
			Text:    &text,
		})
	}

	if len(resp.Citations) == 0 {
		resp.Answer = "I could not find anything about that in the indexed documents."
		resp.Confidence = 0.1
	} else {
		parts := make([]string, 0, len(resp.Snippets))
		for _, s := range resp.Snippets {
			parts = append(parts, fmt.Sprintf("%s [%d]", *s.Text, s.Rank))
		}
		resp.Answer = strings.Join(parts, " ")
		resp.Confidence = *resp.Snippets[0].Score
	}

	resp.Telemetry = entity.Telemetry{
		LatencyMS:        time.Since(start).Milliseconds(),
		TokensPrompt:     int64(len(terms) * 4),
		TokensCompletion: int64(len(strings.Fields(resp.Answer))),
	}
	return resp, nil
}

func matchScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if len(term) >= 3 && strings.Contains(lower, strings.TrimRight(term, "s?.!,")) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func (m *MockConnector) Ingest(ctx context.Context, req *entity.IngestRequest) (*entity.StatusResponse, error) {
	ctxzap.Info(ctx, "[MOCK] ingesting paths", zap.Strings("paths", req.Paths))

	m.mu.Lock()
	for _, p := range req.Paths {
		m.addDocument(p, "", 3)
	}
	m.mu.Unlock()

	return &entity.StatusResponse{
		Status:  entity.IngestStatusOK,
		Message: fmt.Sprintf("Ingested %d path(s)", len(req.Paths)),
	}, nil
}

func (m *MockConnector) IngestUpload(ctx context.Context, req *entity.IngestUploadRequest) (*entity.IngestUploadResponse, error) {
	ctxzap.Info(ctx, "[MOCK] uploading files", zap.Int("file_count", len(req.Files)))

	m.mu.Lock()
	defer m.mu.Unlock()

	chunkTokens := req.MaxChunkTokens
	if chunkTokens <= 0 {
		chunkTokens = entity.DefaultMaxChunkTokens
	}

	names := make([]string, 0, len(req.Files))
	chunksAdded := 0
	for _, f := range req.Files {
		chunks := len(f.Content)/(chunkTokens*4) + 1
		m.addDocument(f.Filename, "", chunks)
		names = append(names, f.Filename)
		chunksAdded += chunks
	}

	filesProcessed := len(req.Files)
	totalDocs := len(m.documents)
	totalChunks := m.chunks
	return &entity.IngestUploadResponse{
		Status:          entity.IngestStatusOK,
		FilesProcessed:  &filesProcessed,
		Filenames:       names,
		DocumentsAdded:  &filesProcessed,
		ChunksAdded:     &chunksAdded,
		TotalDocuments:  &totalDocs,
		TotalChunks:     &totalChunks,
		RecentDocuments: m.recent(5),
	}, nil
}

func (m *MockConnector) Rebuild(ctx context.Context) (*entity.StatusResponse, error) {
	ctxzap.Info(ctx, "[MOCK] rebuilding index")
	return &entity.StatusResponse{Status: entity.IngestStatusOK, Message: "Index rebuilt"}, nil
}

func (m *MockConnector) IngestStatus(ctx context.Context) (*entity.IngestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &entity.IngestStatus{
		Status:         entity.IngestStatusOK,
		TotalDocuments: len(m.documents),
		TotalChunks:    m.chunks,
		Documents:      m.recent(len(m.documents)),
	}, nil
}

func (m *MockConnector) Feedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error) {
	ctxzap.Info(ctx, "[MOCK] feedback received",
		zap.String("interaction_id", req.InteractionID),
		zap.Int("rating", req.Rating),
	)
	return &entity.StatusResponse{Status: entity.IngestStatusOK}, nil
}

// addDocument must be called with mu held (or before the mock is shared).
func (m *MockConnector) addDocument(title, url string, chunks int) {
	m.nextID++
	m.documents = append(m.documents, entity.DocumentSummary{
		ID:         m.nextID,
		Title:      title,
		Source:     title,
		URL:        url,
		CreatedAt:  &entity.Timestamp{Time: time.Now().UTC()},
		ChunkCount: chunks,
	})
	m.chunks += chunks
}

// recent returns the newest n documents, newest first.
func (m *MockConnector) recent(n int) []entity.DocumentSummary {
	out := make([]entity.DocumentSummary, 0, n)
	for i := len(m.documents) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.documents[i])
	}
	return out
}
