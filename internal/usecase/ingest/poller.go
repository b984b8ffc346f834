package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// Poller refreshes the cached index status on a fixed interval while at least
// one holder has acquired it. Polls run one after another on a single
// goroutine, so there is never more than one status request outstanding.
type Poller struct {
	client   *Client
	interval time.Duration
	logger   *zap.Logger

	refresh chan struct{}

	mu      sync.Mutex
	holders int
	cancel  context.CancelFunc
	done    chan struct{}
}

func newPoller(client *Client, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		interval: interval,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
	}
}

// Acquire registers a holder and starts polling if it is the first one.
// The returned release func is idempotent; the loop stops when the last
// holder releases.
func (p *Poller) Acquire() (release func()) {
	p.mu.Lock()
	p.holders++
	if p.holders == 1 {
		p.start()
	}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(p.release)
	}
}

// Refresh asks for a poll as soon as possible. Requests made while one is
// already queued are merged into it.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop cancels the loop regardless of holders and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.holders = 0
	done := p.stop()
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (p *Poller) release() {
	p.mu.Lock()
	if p.holders > 0 {
		p.holders--
	}
	var done chan struct{}
	if p.holders == 0 {
		done = p.stop()
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// start must be called with mu held.
func (p *Poller) start() {
	ctx, cancel := context.WithCancel(ctxzap.ToContext(context.Background(), p.logger))
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// stop must be called with mu held. It returns the channel to wait on.
func (p *Poller) stop() chan struct{} {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	done := p.done
	p.cancel = nil
	p.done = nil
	return done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if _, err := p.client.GetStatus(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		ctxzap.Warn(ctx, "ingest status poll failed", zap.Error(err))
	}
}
