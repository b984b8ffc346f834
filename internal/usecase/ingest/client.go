package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	statusCacheKey = "ingest_status"
	// upper bound for one status fetch, independent of who asked for it
	statusTimeout = 30 * time.Second
)

// Client submits documents to the backend and keeps the last reported index
// status. Path ingestion, upload and rebuild are each single-flight; they do
// not block one another or the query orchestrator.
type Client struct {
	backend Backend
	cfg     config.IngestConfig
	cache   *cache.Cache
	poller  *Poller
	logger  *zap.Logger

	// statusFlight collapses concurrent status fetches, polled or on
	// demand, into one request. statusMu orders writes to the cached status.
	statusFlight singleflight.Group
	statusMu     sync.Mutex

	pathPending    atomic.Bool
	uploadPending  atomic.Bool
	rebuildPending atomic.Bool
}

func NewClient(backend Backend, cfg config.IngestConfig, logger *zap.Logger) *Client {
	c := &Client{
		backend: backend,
		cfg:     cfg,
		cache:   cache.New(cache.NoExpiration, 0),
		logger:  logger,
	}
	c.poller = newPoller(c, cfg.PollInterval, logger)
	return c
}

// Poller returns the status poller bound to this client.
func (c *Client) Poller() *Poller {
	return c.poller
}

type chunking struct {
	maxChunkTokens int
	overlap        int
}

type Option func(*chunking)

func WithChunking(maxChunkTokens, overlap int) Option {
	return func(c *chunking) {
		c.maxChunkTokens = maxChunkTokens
		c.overlap = overlap
	}
}

func (c *Client) chunking(opts []Option) chunking {
	ch := chunking{
		maxChunkTokens: c.cfg.MaxChunkTokens,
		overlap:        c.cfg.Overlap,
	}
	if ch.maxChunkTokens <= 0 {
		ch.maxChunkTokens = entity.DefaultMaxChunkTokens
		ch.overlap = entity.DefaultOverlap
	}
	for _, opt := range opts {
		opt(&ch)
	}
	return ch
}

// IngestByPath asks the backend to ingest server-side paths. Errors are
// returned untouched.
func (c *Client) IngestByPath(ctx context.Context, paths []string, opts ...Option) (*entity.StatusResponse, error) {
	ch := c.chunking(opts)
	req := &entity.IngestRequest{
		Paths:          paths,
		MaxChunkTokens: ch.maxChunkTokens,
		Overlap:        ch.overlap,
	}
	if err := validator.ValidateIngestRequest(req); err != nil {
		return nil, err
	}

	if !c.pathPending.CompareAndSwap(false, true) {
		return nil, entity.ErrIngestInFlight
	}
	defer c.pathPending.Store(false)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.backend.Ingest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "path ingestion finished",
		zap.String("status", resp.Status),
		zap.String("message", resp.Message),
	)
	c.poller.Refresh()
	return resp, nil
}

// IngestUpload sends files in one multipart request. The caller has already
// filtered the selection by extension; an empty selection never reaches the network.
func (c *Client) IngestUpload(ctx context.Context, files []entity.FileData, opts ...Option) (*entity.IngestUploadResponse, error) {
	if len(files) == 0 {
		return nil, entity.ErrEmptySubmission
	}

	ch := c.chunking(opts)
	if err := validator.ValidateChunking(ch.maxChunkTokens, ch.overlap); err != nil {
		return nil, err
	}

	if !c.uploadPending.CompareAndSwap(false, true) {
		return nil, entity.ErrIngestInFlight
	}
	defer c.uploadPending.Store(false)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.backend.IngestUpload(ctx, &entity.IngestUploadRequest{
		Files:          files,
		MaxChunkTokens: ch.maxChunkTokens,
		Overlap:        ch.overlap,
	})
	if err != nil {
		return nil, err
	}

	if resp.Status == entity.IngestStatusOK {
		c.foldTotals(resp)
		c.poller.Refresh()
	}
	return resp, nil
}

// Rebuild asks the backend to rebuild its index from the ingested sources.
func (c *Client) Rebuild(ctx context.Context) (*entity.StatusResponse, error) {
	if !c.rebuildPending.CompareAndSwap(false, true) {
		return nil, entity.ErrIngestInFlight
	}
	defer c.rebuildPending.Store(false)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.backend.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	c.poller.Refresh()
	return resp, nil
}

// GetStatus fetches the index status and stores it as the cached status.
// Callers arriving while a fetch is outstanding, including the poller,
// share its result instead of sending another request.
func (c *Client) GetStatus(ctx context.Context) (*entity.IngestStatus, error) {
	result := c.statusFlight.DoChan(statusCacheKey, func() (any, error) {
		// detached so one caller giving up does not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.statusTimeout())
		defer cancel()

		status, err := c.backend.IngestStatus(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.statusMu.Lock()
		c.cache.SetDefault(statusCacheKey, *status)
		c.statusMu.Unlock()
		return *status, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		status := res.Val.(entity.IngestStatus)
		return &status, nil
	}
}

func (c *Client) statusTimeout() time.Duration {
	if c.cfg.Timeout > 0 && c.cfg.Timeout < statusTimeout {
		return c.cfg.Timeout
	}
	return statusTimeout
}

// CachedStatus returns the last status reported by the backend.
func (c *Client) CachedStatus() (*entity.IngestStatus, bool) {
	v, ok := c.cache.Get(statusCacheKey)
	if !ok {
		return nil, false
	}
	status := v.(entity.IngestStatus)
	return &status, true
}

func (c *Client) IsPathPending() bool   { return c.pathPending.Load() }
func (c *Client) IsUploadPending() bool { return c.uploadPending.Load() }

// foldTotals applies the totals of a successful upload to the cached status
// so they are visible before the next poll lands.
func (c *Client) foldTotals(resp *entity.IngestUploadResponse) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	status := entity.IngestStatus{Status: entity.IngestStatusOK}
	if cached, ok := c.CachedStatus(); ok {
		status = *cached
	}

	if resp.TotalDocuments != nil {
		status.TotalDocuments = *resp.TotalDocuments
	}
	if resp.TotalChunks != nil {
		status.TotalChunks = *resp.TotalChunks
	}
	if len(status.Documents) == 0 && len(resp.RecentDocuments) > 0 {
		status.Documents = resp.RecentDocuments
	}

	c.cache.SetDefault(statusCacheKey, status)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// UploadSummary renders the human readable result of an upload. submitted is
// the number of files sent, used when the backend omits files_processed.
func UploadSummary(resp *entity.IngestUploadResponse, submitted int) string {
	if resp == nil {
		return ""
	}
	if resp.Status != entity.IngestStatusOK {
		if resp.Message != "" {
			return fmt.Sprintf("Upload finished with status %q: %s", resp.Status, resp.Message)
		}
		return fmt.Sprintf("Upload finished with status %q", resp.Status)
	}

	files := submitted
	if resp.FilesProcessed != nil {
		files = *resp.FilesProcessed
	}

	var b strings.Builder
	b.WriteString("Successfully processed!\n\n")
	fmt.Fprintf(&b, "Files: %d\n", files)
	fmt.Fprintf(&b, "Documents added: %d\n", intOrZero(resp.DocumentsAdded))
	fmt.Fprintf(&b, "Chunks added: %d\n", intOrZero(resp.ChunksAdded))
	fmt.Fprintf(&b, "Total documents: %d\n", intOrZero(resp.TotalDocuments))
	fmt.Fprintf(&b, "Total chunks: %d", intOrZero(resp.TotalChunks))
	return b.String()
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
