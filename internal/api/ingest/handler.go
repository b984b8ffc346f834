package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/logger"
	"github.com/futig/knowledge-console/internal/pkg/response"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	client    IngestClient
	validator UploadValidator
	cfg       config.UploadConfig
}

func NewHandler(client IngestClient, v UploadValidator, cfg config.UploadConfig) *Handler {
	return &Handler{
		client:    client,
		validator: v,
		cfg:       cfg,
	}
}

// IngestPaths handles POST /ingest
func (h *Handler) IngestPaths(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestPaths")

	var req IngestPathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var opts []ingest.Option
	if req.MaxChunkTokens != nil || req.Overlap != nil {
		opts = append(opts, ingest.WithChunking(intOr(req.MaxChunkTokens, entity.DefaultMaxChunkTokens), intOr(req.Overlap, entity.DefaultOverlap)))
	}

	ctxzap.Info(ctx, "ingesting paths", zap.Strings("paths", req.Paths))

	resp, err := h.client.IngestByPath(ctx, req.Paths, opts...)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.Success(w, resp)
}

// Upload handles POST /ingest/upload. Files with unsupported extensions are
// dropped and listed in the response.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadFiles")

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		ctxzap.Error(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := chunkingFromForm(r)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	files, err := readFiles(r.MultipartForm.File["files"])
	if err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "failed to read uploaded files", err)
		return
	}

	kept, rejected := validator.FilterSupportedFiles(files)
	if len(rejected) > 0 {
		ctxzap.Warn(ctx, "unsupported files dropped", zap.Strings("rejected", rejected))
	}

	if len(kept) > 0 {
		if err := h.validator.ValidateUpload(kept); err != nil {
			response.HandleError(ctx, w, err)
			return
		}
	}

	ctxzap.Info(ctx, "uploading files", zap.Int("file_count", len(kept)))

	resp, err := h.client.IngestUpload(ctx, kept, opts...)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	response.Success(w, UploadResponseDTO{
		Result:   resp,
		Summary:  ingest.UploadSummary(resp, len(kept)),
		Rejected: rejected,
	})
}

// Rebuild handles POST /ingest/rebuild
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Rebuild")

	resp, err := h.client.Rebuild(ctx)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.Success(w, resp)
}

// Status handles GET /ingest/status. With ?cached=true the last known status
// is returned without contacting the backend.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestStatus")

	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		status, ok := h.client.CachedStatus()
		if !ok {
			response.NoContent(w)
			return
		}
		response.Success(w, StatusDTO{Status: status, Cached: true})
		return
	}

	status, err := h.client.GetStatus(ctx)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.Success(w, StatusDTO{Status: status})
}

func chunkingFromForm(r *http.Request) ([]ingest.Option, error) {
	rawTokens := r.FormValue("max_chunk_tokens")
	rawOverlap := r.FormValue("overlap")
	if rawTokens == "" && rawOverlap == "" {
		return nil, nil
	}

	maxTokens, overlap := entity.DefaultMaxChunkTokens, entity.DefaultOverlap
	var err error
	if rawTokens != "" {
		if maxTokens, err = strconv.Atoi(rawTokens); err != nil {
			return nil, fmt.Errorf("%w: max_chunk_tokens must be an integer", entity.ErrInvalidParameter)
		}
	}
	if rawOverlap != "" {
		if overlap, err = strconv.Atoi(rawOverlap); err != nil {
			return nil, fmt.Errorf("%w: overlap must be an integer", entity.ErrInvalidParameter)
		}
	}
	return []ingest.Option{ingest.WithChunking(maxTokens, overlap)}, nil
}

func readFiles(headers []*multipart.FileHeader) ([]entity.FileData, error) {
	files := make([]entity.FileData, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, entity.FileData{Filename: fh.Filename, Content: content})
	}
	return files, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
