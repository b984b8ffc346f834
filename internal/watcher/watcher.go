package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const DefaultBatchWindow = 2 * time.Second

type Uploader interface {
	IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error)
}

// Watcher uploads documents dropped into a folder. Events are collected for
// one quiet window and then sent as a single upload batch; files with an
// unsupported extension are ignored.
type Watcher struct {
	dir       string
	window    time.Duration
	uploader  Uploader
	validator *validator.Validator
	logger    *zap.Logger

	// OnBatch, when set, receives the result of every batch. Used by the CLI
	// to print upload summaries.
	OnBatch func(files []string, resp *entity.IngestUploadResponse, err error)
}

func New(dir string, window time.Duration, uploader Uploader, v *validator.Validator, logger *zap.Logger) *Watcher {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	return &Watcher{
		dir:       dir,
		window:    window,
		uploader:  uploader,
		validator: v,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ctx = ctxzap.ToContext(ctx, w.logger.With(zap.String("watch_dir", w.dir)))
	ctxzap.Info(ctx, "watching folder for documents")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.window)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !validator.IsSupportedFile(event.Name) {
				ctxzap.Debug(ctx, "ignoring unsupported file", zap.String("path", event.Name))
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.window)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			ctxzap.Warn(ctx, "watcher error", zap.Error(err))

		case <-timer.C:
			if w.flush(ctx, pending) {
				pending = make(map[string]struct{})
			} else {
				timer.Reset(w.window)
			}
		}
	}
}

// flush uploads the pending set. It reports false when the batch should be
// kept for the next window.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]entity.FileData, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			// removed or renamed before the window closed
			ctxzap.Debug(ctx, "skipping unreadable file", zap.String("path", p), zap.Error(err))
			continue
		}
		files = append(files, entity.FileData{Filename: filepath.Base(p), Content: content})
	}
	if len(files) == 0 {
		return true
	}

	if w.validator != nil {
		if err := w.validator.ValidateUpload(files); err != nil {
			ctxzap.Warn(ctx, "dropping batch", zap.Strings("files", paths), zap.Error(err))
			w.report(paths, nil, err)
			return true
		}
	}

	resp, err := w.uploader.IngestUpload(ctx, files)
	if errors.Is(err, entity.ErrIngestInFlight) {
		ctxzap.Info(ctx, "upload in flight, deferring batch", zap.Int("file_count", len(files)))
		return false
	}
	if err != nil {
		ctxzap.Error(ctx, "batch upload failed", zap.Strings("files", paths), zap.Error(err))
	} else {
		ctxzap.Info(ctx, "batch uploaded", zap.Int("file_count", len(files)), zap.String("status", resp.Status))
	}

	w.report(paths, resp, err)
	return true
}

func (w *Watcher) report(paths []string, resp *entity.IngestUploadResponse, err error) {
	if w.OnBatch != nil {
		w.OnBatch(paths, resp, err)
	}
}
