package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/feedback"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/usecase/session"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatal("nothing sent")
	}
	return texts[len(texts)-1]
}

func (f *fakeBot) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type queryBackend struct {
	err error
}

func (q *queryBackend) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error) {
	if q.err != nil {
		return nil, q.err
	}
	text := "Refunds are issued within 30 days of purchase."
	score := 0.91
	return &entity.QueryResponse{
		Answer:     "Refunds are available within 30 days.",
		Citations:  []entity.Citation{{Rank: 1, Title: "Refund Policy", URL: "https://example.com/refunds"}},
		Confidence: 0.82,
		Telemetry:  entity.Telemetry{LatencyMS: 120, TokensPrompt: 50, TokensCompletion: 10, CostUSD: 0.0004},
		Snippets:   []entity.Snippet{{Rank: 1, Title: "Refund Policy", URL: "https://example.com/refunds", Score: &score, Text: &text}},
	}, nil
}

type fakeIngest struct {
	mu      sync.Mutex
	uploads [][]entity.FileData
	paths   [][]string
}

func (f *fakeIngest) IngestByPath(ctx context.Context, paths []string, opts ...ingest.Option) (*entity.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, paths)
	return &entity.StatusResponse{Status: "ok", Message: "queued"}, nil
}

func (f *fakeIngest) IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, files)
	n, total := len(files), 12
	return &entity.IngestUploadResponse{Status: "ok", FilesProcessed: &n, TotalDocuments: &total, TotalChunks: &total}, nil
}

func (f *fakeIngest) Rebuild(ctx context.Context) (*entity.StatusResponse, error) {
	return &entity.StatusResponse{Status: "ok"}, nil
}

func (f *fakeIngest) GetStatus(ctx context.Context) (*entity.IngestStatus, error) {
	return &entity.IngestStatus{Status: "ok", TotalDocuments: 3, TotalChunks: 30}, nil
}

type feedbackBackend struct {
	reqs []*entity.FeedbackRequest
}

func (f *feedbackBackend) Feedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error) {
	f.reqs = append(f.reqs, req)
	return &entity.StatusResponse{Status: "ok"}, nil
}

type fixture struct {
	bot      *fakeBot
	sessions *session.Registry
	ingest   *fakeIngest
	feedback *feedbackBackend
	deps     Deps
}

func newFixture(t *testing.T, qb *queryBackend) *fixture {
	t.Helper()
	f := &fixture{
		bot: &fakeBot{},
		sessions: session.NewRegistry(qb,
			config.QueryConfig{TopK: 20, ChatKFinal: 5, SearchKFinal: 10, Timeout: time.Second},
			config.SessionConfig{IdleTTL: time.Hour, CleanupInterval: time.Hour},
			zap.NewNop(),
		),
		ingest:   &fakeIngest{},
		feedback: &feedbackBackend{},
	}
	f.deps = Deps{
		Bot:         f.bot,
		Sessions:    f.sessions,
		Ingest:      f.ingest,
		Validator:   validator.NewFileValidator(config.UploadConfig{MaxFileSize: 1 << 20, MaxFileCount: 4}),
		Feedback:    feedback.NewUsecase(f.feedback),
		MaxFileSize: 1 << 20,
		Logger:      zap.NewNop(),
	}
	return f
}

const chatID = int64(42)

func TestQuestionHandler_Answers(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	h := NewQuestionHandler(f.deps)

	if err := h.Handle(context.Background(), &Message{ChatID: chatID, Text: "What is the refund policy?"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	f.bot.mu.Lock()
	last := f.bot.sent[len(f.bot.sent)-1].(tgbotapi.MessageConfig)
	f.bot.mu.Unlock()
	if !strings.Contains(last.Text, "Refunds are available within 30 days.") || !strings.Contains(last.Text, "confidence 82% (high)") {
		t.Errorf("unexpected answer: %q", last.Text)
	}
	if last.ParseMode != tgbotapi.ModeHTML || last.ReplyMarkup == nil {
		t.Errorf("answer should be HTML with a keyboard: %+v", last)
	}

	s := f.sessions.Ensure(context.Background(), ChatSessionID(chatID))
	if s.Store.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", s.Store.Len())
	}
}

func TestQuestionHandler_FailureShowsRecordedError(t *testing.T) {
	f := newFixture(t, &queryBackend{err: &pkghttp.HTTPError{StatusCode: 500, Message: "internal error"}})
	h := NewQuestionHandler(f.deps)

	h.Handle(context.Background(), &Message{ChatID: chatID, Text: "refund policy"})

	if got := f.bot.lastText(t); got != "⚠️ Error: HTTP 500: internal error" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestCommandHandler_SourcesMetricsClear(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	ctx := context.Background()
	q := NewQuestionHandler(f.deps)
	c := NewCommandHandler(f.deps)

	c.Handle(ctx, &Message{ChatID: chatID, Command: "sources"})
	if !strings.Contains(f.bot.lastText(t), "Nothing answered yet") {
		t.Errorf("unexpected reply: %q", f.bot.lastText(t))
	}

	q.Handle(ctx, &Message{ChatID: chatID, Text: "What is the refund policy?"})

	c.Handle(ctx, &Message{ChatID: chatID, Command: "sources"})
	if got := f.bot.lastText(t); !strings.Contains(got, "<b>Refund</b>s") || !strings.Contains(got, "Refund Policy</a>") {
		t.Errorf("unexpected sources: %q", got)
	}

	c.Handle(ctx, &Message{ChatID: chatID, Command: "metrics"})
	if got := f.bot.lastText(t); !strings.Contains(got, "latency 120ms") {
		t.Errorf("unexpected metrics: %q", got)
	}

	c.Handle(ctx, &Message{ChatID: chatID, Command: "clear"})
	s := f.sessions.Ensure(ctx, ChatSessionID(chatID))
	if s.Store.Len() != 0 || s.Queries.Latest() != nil {
		t.Errorf("clear left state behind")
	}
}

func TestCommandHandler_IngestStatusFeedback(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	ctx := context.Background()
	c := NewCommandHandler(f.deps)

	c.Handle(ctx, &Message{ChatID: chatID, Command: "ingest"})
	if !strings.Contains(f.bot.lastText(t), "Usage") {
		t.Errorf("expected usage, got %q", f.bot.lastText(t))
	}

	c.Handle(ctx, &Message{ChatID: chatID, Command: "ingest", Args: "data/raw docs"})
	if len(f.ingest.paths) != 1 || len(f.ingest.paths[0]) != 2 {
		t.Errorf("unexpected paths: %v", f.ingest.paths)
	}

	c.Handle(ctx, &Message{ChatID: chatID, Command: "status"})
	if got := f.bot.lastText(t); !strings.Contains(got, "Chunks: 30") {
		t.Errorf("unexpected status: %q", got)
	}

	NewQuestionHandler(f.deps).Handle(ctx, &Message{ChatID: chatID, Text: "refund policy"})
	c.Handle(ctx, &Message{ChatID: chatID, Command: "feedback", Args: "4 very helpful"})
	if len(f.feedback.reqs) != 1 {
		t.Fatalf("expected one feedback request, got %d", len(f.feedback.reqs))
	}
	req := f.feedback.reqs[0]
	if req.Rating != 4 || req.Comment == nil || *req.Comment != "very helpful" || !strings.HasPrefix(req.InteractionID, "chat-42-") {
		t.Errorf("unexpected feedback: %+v", req)
	}

	c.Handle(ctx, &Message{ChatID: chatID, Command: "feedback", Args: "9"})
	if len(f.feedback.reqs) != 1 {
		t.Error("out-of-range rating should not be sent")
	}
}

func TestCallbackHandler_Export(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	ctx := context.Background()
	NewQuestionHandler(f.deps).Handle(ctx, &Message{ChatID: chatID, Text: "refund policy"})

	h := NewCallbackHandler(f.deps)
	if err := h.Handle(ctx, &Message{ChatID: chatID, CallbackData: "exp:md"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	docs := f.bot.documents()
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	file := docs[0].File.(tgbotapi.FileBytes)
	if !strings.HasSuffix(file.Name, ".md") || !strings.Contains(string(file.Bytes), "refund policy") {
		t.Errorf("unexpected export %s: %s", file.Name, file.Bytes)
	}

	if err := h.Handle(ctx, &Message{ChatID: chatID, CallbackData: "garbage"}); err == nil {
		t.Error("malformed callback data should fail")
	}
}

func TestDocumentHandler_RejectsUnsupported(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	h := NewDocumentHandler(f.deps)

	h.Handle(context.Background(), &Message{ChatID: chatID, Document: &tgbotapi.Document{FileID: "1", FileName: "photo.png"}})

	if !strings.Contains(f.bot.lastText(t), "Unsupported file photo.png") {
		t.Errorf("unexpected reply: %q", f.bot.lastText(t))
	}
	if len(f.ingest.uploads) != 0 {
		t.Error("unsupported file should not be uploaded")
	}
}

func TestDocumentHandler_Uploads(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Shipping guide"))
	}))
	defer srv.Close()

	f := newFixture(t, &queryBackend{})
	f.bot.fileURL = srv.URL + "/file/guide.md"
	h := NewDocumentHandler(f.deps)
	h.httpClient = srv.Client()

	h.Handle(context.Background(), &Message{ChatID: chatID, Document: &tgbotapi.Document{FileID: "1", FileName: "guide.md", FileSize: 16}})

	if len(f.ingest.uploads) != 1 || string(f.ingest.uploads[0][0].Content) != "# Shipping guide" {
		t.Fatalf("unexpected uploads: %+v", f.ingest.uploads)
	}
	if got := f.bot.lastText(t); !strings.Contains(got, "Successfully processed!") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestDocumentHandler_RetriesStorageErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("# Returns"))
	}))
	defer srv.Close()

	f := newFixture(t, &queryBackend{})
	f.bot.fileURL = srv.URL + "/file/returns.md"
	h := NewDocumentHandler(f.deps)
	h.httpClient = srv.Client()

	h.Handle(context.Background(), &Message{ChatID: chatID, Document: &tgbotapi.Document{FileID: "1", FileName: "returns.md"}})

	if calls != 2 {
		t.Errorf("expected one retry, got %d calls", calls)
	}
	if len(f.ingest.uploads) != 1 {
		t.Fatalf("expected the file to be uploaded after the retry, got %+v", f.ingest.uploads)
	}
}

func TestDocumentHandler_InsecureURL(t *testing.T) {
	f := newFixture(t, &queryBackend{})
	f.bot.fileURL = "http://api.telegram.org/file/x"
	h := NewDocumentHandler(f.deps)

	h.Handle(context.Background(), &Message{ChatID: chatID, Document: &tgbotapi.Document{FileID: "1", FileName: "guide.md"}})

	if !strings.Contains(f.bot.lastText(t), "Could not download") {
		t.Errorf("unexpected reply: %q", f.bot.lastText(t))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		level    zapcore.Level
		contains string
	}{
		{"in flight", entity.ErrQueryInFlight, zapcore.WarnLevel, "Still working"},
		{"connectivity", &pkghttp.ConnectivityError{BaseURL: "http://x"}, zapcore.ErrorLevel, "Cannot reach"},
		{"http", &pkghttp.HTTPError{StatusCode: 502, Message: "bad"}, zapcore.ErrorLevel, "HTTP 502: bad"},
		{"timeout", context.DeadlineExceeded, zapcore.ErrorLevel, "did not answer in time"},
		{"validation", entity.NewValidationError("query", "too short"), zapcore.WarnLevel, "too short"},
		{"unknown", errors.New("boom"), zapcore.ErrorLevel, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.level != tt.level || !strings.Contains(got.reply, tt.contains) {
				t.Errorf("got %+v", got)
			}
		})
	}
}
