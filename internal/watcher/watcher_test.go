package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"go.uber.org/zap"
)

type recordingUploader struct {
	mu      sync.Mutex
	batches [][]entity.FileData
}

func (u *recordingUploader) IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.batches = append(u.batches, files)
	return &entity.IngestUploadResponse{Status: "ok"}, nil
}

func (u *recordingUploader) snapshot() [][]entity.FileData {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([][]entity.FileData(nil), u.batches...)
}

func TestWatcher_BatchesSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	uploader := &recordingUploader{}
	v := validator.NewFileValidator(config.UploadConfig{MaxFileCount: 10, MaxFileSize: 1 << 20})
	w := New(dir, 100*time.Millisecond, uploader, v, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	for name, body := range map[string]string{
		"guide.md":  "# Guide",
		"notes.txt": "ignored",
		"page.HTML": "<p>hi</p>",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(uploader.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run failed: %v", err)
	}

	batches := uploader.snapshot()
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(batches))
	}

	var names []string
	for _, f := range batches[0] {
		names = append(names, f.Filename)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "guide.md" || names[1] != "page.HTML" {
		t.Errorf("unexpected batch: %v", names)
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), time.Millisecond, &recordingUploader{}, nil, zap.NewNop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
