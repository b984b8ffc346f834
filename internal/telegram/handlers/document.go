package handlers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/futig/knowledge-console/internal/entity"
	pkgRetry "github.com/futig/knowledge-console/internal/pkg/retry"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/telegram/render"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var (
	errInsecureFileURL = errors.New("file URL is not https")

	// Telegram's file storage occasionally answers 5xx; a couple of quick
	// retries are enough.
	downloadRetry = pkgRetry.RetryConfig{
		Attempts: 3,
		Delay:    200 * time.Millisecond,
		MaxDelay: time.Second,
		Timeout:  30 * time.Second,
	}
)

func newDownloadClient() *http.Client {
	return &http.Client{
		Timeout: downloadRetry.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// DocumentHandler uploads documents sent to the chat into the index
type DocumentHandler struct {
	actions
	httpClient *http.Client
}

func NewDocumentHandler(deps Deps) *DocumentHandler {
	return &DocumentHandler{
		actions:    newActions(HandlerKindDocument, deps),
		httpClient: newDownloadClient(),
	}
}

// Handle implements Handler
func (h *DocumentHandler) Handle(ctx context.Context, msg *Message) error {
	doc := msg.Document
	if doc == nil {
		return nil
	}
	name := render.Escape(doc.FileName)
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("file_name", doc.FileName)))

	switch {
	case !validator.IsSupportedFile(doc.FileName):
		supported := strings.Join(entity.SupportedExtensions, ", ")
		h.sendMessage(msg.ChatID, fmt.Sprintf(render.ErrUnsupportedFile, name, supported), nil)
		return nil
	case h.deps.MaxFileSize > 0 && int64(doc.FileSize) > h.deps.MaxFileSize:
		h.sendMessage(msg.ChatID, render.ErrFileTooLarge, nil)
		return nil
	}

	h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgUploading, name), nil)

	content, err := h.fetch(ctx, doc.FileID)
	if err != nil {
		ctxzap.Error(ctx, "document download failed", zap.Error(err))
		if errors.Is(err, entity.ErrFileTooLarge) {
			h.sendMessage(msg.ChatID, render.ErrFileTooLarge, nil)
		} else {
			h.sendMessage(msg.ChatID, render.ErrDownload, nil)
		}
		return nil
	}

	files := []entity.FileData{{Filename: doc.FileName, Content: content}}
	if err := h.deps.Validator.ValidateUpload(files); err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	resp, err := h.deps.Ingest.IngestUpload(ctx, files)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	h.sendMessage(msg.ChatID, render.UploadResult(ingest.UploadSummary(resp, len(files))), nil)
	return nil
}

// fetch downloads a file from Telegram's storage, retrying 5xx replies
// and network failures.
func (h *DocumentHandler) fetch(ctx context.Context, fileID string) ([]byte, error) {
	link, err := h.deps.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file link: %w", err)
	}
	if u, err := url.Parse(link); err != nil || u.Scheme != "https" {
		return nil, errInsecureFileURL
	}

	var content []byte
	err = pkgRetry.Do(ctx, &downloadRetry, "download_document", func(ctx context.Context) error {
		content, err = h.get(ctx, link)
		return err
	}, retry.RetryIf(func(err error) bool {
		var status statusError
		if errors.As(err, &status) {
			return status >= 500
		}
		return !errors.Is(err, entity.ErrFileTooLarge) && ctx.Err() == nil
	}))
	return content, err
}

type statusError int

func (e statusError) Error() string {
	return fmt.Sprintf("file storage answered %d", int(e))
}

func (h *DocumentHandler) get(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	limit := h.deps.MaxFileSize
	if limit <= 0 {
		return io.ReadAll(resp.Body)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", entity.ErrFileTooLarge, limit)
	}
	return content, nil
}
