package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"go.uber.org/zap/zaptest"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPoller_SingleOutstandingRequest(t *testing.T) {
	backend := &fakeBackend{
		status:      &entity.IngestStatus{Status: "ok"},
		statusDelay: 20 * time.Millisecond,
	}
	cfg := testConfig()
	cfg.PollInterval = time.Millisecond
	c := NewClient(backend, cfg, zaptest.NewLogger(t))

	release := c.Poller().Acquire()
	for i := 0; i < 20; i++ {
		c.Poller().Refresh()
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, func() bool {
		_, _, status := backend.calls()
		return status >= 3
	})
	release()

	if got := backend.maxOutstanding.Load(); got != 1 {
		t.Errorf("expected at most one outstanding status request, saw %d", got)
	}
}

func TestPoller_RefCounted(t *testing.T) {
	backend := &fakeBackend{status: &entity.IngestStatus{Status: "ok", TotalDocuments: 1}}
	c := NewClient(backend, testConfig(), zaptest.NewLogger(t))
	p := c.Poller()

	releaseA := p.Acquire()
	releaseB := p.Acquire()
	if !p.Running() {
		t.Fatal("poller should run while held")
	}

	waitFor(t, func() bool {
		_, ok := c.CachedStatus()
		return ok
	})

	releaseA()
	releaseA()
	if !p.Running() {
		t.Fatal("poller should keep running while a holder remains")
	}

	releaseB()
	if p.Running() {
		t.Fatal("poller should stop when the last holder releases")
	}

	_, _, before := backend.calls()
	time.Sleep(30 * time.Millisecond)
	if _, _, after := backend.calls(); after != before {
		t.Errorf("poll ran after release: %d -> %d", before, after)
	}
}

func TestPoller_RefreshTriggersPoll(t *testing.T) {
	backend := &fakeBackend{status: &entity.IngestStatus{Status: "ok"}}
	c := NewClient(backend, testConfig(), zaptest.NewLogger(t))

	release := c.Poller().Acquire()
	defer release()

	waitFor(t, func() bool {
		_, _, n := backend.calls()
		return n == 1
	})

	c.Poller().Refresh()
	waitFor(t, func() bool {
		_, _, n := backend.calls()
		return n == 2
	})
}

func TestPoller_ErrorsLeaveCacheUntouched(t *testing.T) {
	backend := &fakeBackend{status: &entity.IngestStatus{Status: "ok", TotalChunks: 7}}
	c := NewClient(backend, testConfig(), zaptest.NewLogger(t))

	if _, err := c.GetStatus(context.Background()); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	backend.mu.Lock()
	backend.statusErr = errors.New("backend down")
	backend.mu.Unlock()

	release := c.Poller().Acquire()
	waitFor(t, func() bool {
		_, _, n := backend.calls()
		return n >= 2
	})
	release()

	status, ok := c.CachedStatus()
	if !ok || status.TotalChunks != 7 {
		t.Errorf("cache changed after failed poll: %+v", status)
	}
}

func TestPoller_Stop(t *testing.T) {
	backend := &fakeBackend{status: &entity.IngestStatus{Status: "ok"}}
	c := NewClient(backend, testConfig(), zaptest.NewLogger(t))

	release := c.Poller().Acquire()
	c.Poller().Stop()
	if c.Poller().Running() {
		t.Fatal("poller should be stopped")
	}
	release()
}
