package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	healthEndpoint       = "/health"
	queryEndpoint        = "/query"
	ingestEndpoint       = "/ingest"
	ingestUploadEndpoint = "/ingest/upload"
	rebuildEndpoint      = "/ingest/rebuild"
	ingestStatusEndpoint = "/ingest/status"
	feedbackEndpoint     = "/feedback"
)

// Connector is the HTTP client of the retrieval and generation backend.
// Every method performs exactly one request; errors come back as produced by
// the transport (ConnectivityError, HTTPError, DecodeError) or the validator.
type Connector struct {
	connector *pkghttp.Connector
	logger    *zap.Logger
}

const userAgent = "knowledge-console/1.0"

func NewConnector(cfg config.BackendConfig, logger *zap.Logger) *Connector {
	return NewConnectorFrom(newTransport(cfg.HTTPClientConfig), logger)
}

// newTransport applies the client settings every backend call shares.
func newTransport(cfg config.HTTPClientConfig) *pkghttp.Connector {
	return pkghttp.NewConnector(cfg.Url,
		pkghttp.WithTimeouts(pkghttp.Timeouts{
			Request:        cfg.RequestTimeout,
			Connect:        cfg.ConnTimeout,
			KeepAlive:      cfg.KeepAlive,
			IdleConn:       cfg.IdleConnTimeout,
			ResponseHeader: cfg.ResponseHeaderTimeout,
		}),
		pkghttp.WithAuthToken(cfg.Token),
		pkghttp.WithUserAgent(userAgent),
		pkghttp.WithRequestLogging(),
	)
}

// NewConnectorFrom wraps an already configured transport.
func NewConnectorFrom(connector *pkghttp.Connector, logger *zap.Logger) *Connector {
	return &Connector{
		connector: connector,
		logger:    logger,
	}
}

func (c *Connector) BaseURL() string {
	return c.connector.BaseURL()
}

// Health
// GET /health
func (c *Connector) Health(ctx context.Context) (*entity.StatusResponse, error) {
	var resp entity.StatusResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, healthEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query sends a question and decodes the answer with its citations.
// POST /query
func (c *Connector) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResponse, error) {
	ctxzap.Debug(ctx, "sending query", zap.Int("query_length", len(req.Query)))

	var raw json.RawMessage
	if err := c.connector.DoRequest(ctx, http.MethodPost, queryEndpoint, req, &raw); err != nil {
		return nil, err
	}

	resp, err := validator.DecodeQueryResponse(raw)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "query answered",
		zap.Int("citations", len(resp.Citations)),
		zap.Int("snippets", len(resp.Snippets)),
		zap.Int64("latency_ms", resp.Telemetry.LatencyMS),
	)
	return resp, nil
}

// Ingest asks the backend to ingest server-side paths.
// POST /ingest
func (c *Connector) Ingest(ctx context.Context, req *entity.IngestRequest) (*entity.StatusResponse, error) {
	ctxzap.Info(ctx, "ingesting paths", zap.Strings("paths", req.Paths))

	var resp entity.StatusResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, ingestEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestUpload sends files as one multipart/form-data request.
// POST /ingest/upload with files[], max_chunk_tokens, overlap
func (c *Connector) IngestUpload(ctx context.Context, req *entity.IngestUploadRequest) (*entity.IngestUploadResponse, error) {
	ctxzap.Info(ctx, "uploading files for ingestion", zap.Int("file_count", len(req.Files)))

	prepareBody := func(writer *multipart.Writer) error {
		for _, file := range req.Files {
			part, err := writer.CreateFormFile("files", file.Filename)
			if err != nil {
				return fmt.Errorf("create form file: %w", err)
			}

			if _, err := part.Write(file.Content); err != nil {
				return fmt.Errorf("write file content: %w", err)
			}
		}

		if err := writer.WriteField("max_chunk_tokens", strconv.Itoa(req.MaxChunkTokens)); err != nil {
			return fmt.Errorf("write max_chunk_tokens: %w", err)
		}
		if err := writer.WriteField("overlap", strconv.Itoa(req.Overlap)); err != nil {
			return fmt.Errorf("write overlap: %w", err)
		}
		return nil
	}

	var resp entity.IngestUploadResponse
	if err := c.connector.DoMultipartRequest(ctx, http.MethodPost, ingestUploadEndpoint, prepareBody, &resp); err != nil {
		ctxzap.Error(ctx, "failed to upload files", zap.Error(err))
		return nil, err
	}

	ctxzap.Info(ctx, "upload accepted", zap.String("status", resp.Status))
	return &resp, nil
}

// Rebuild
// POST /ingest/rebuild
func (c *Connector) Rebuild(ctx context.Context) (*entity.StatusResponse, error) {
	var resp entity.StatusResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, rebuildEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestStatus
// GET /ingest/status
func (c *Connector) IngestStatus(ctx context.Context) (*entity.IngestStatus, error) {
	var resp entity.IngestStatus
	if err := c.connector.DoRequest(ctx, http.MethodGet, ingestStatusEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Feedback
// POST /feedback
func (c *Connector) Feedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error) {
	var resp entity.StatusResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, feedbackEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
