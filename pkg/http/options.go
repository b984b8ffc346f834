package http

import (
	"net/http"
	"time"
)

// Option configures the client behind a Connector.
type Option func(*clientConfig)

// TransportFunc decorates a round tripper.
type TransportFunc func(http.RoundTripper) http.RoundTripper

// Timeouts groups the transport deadlines. Zero fields keep the defaults,
// except ResponseHeader where zero means no limit.
type Timeouts struct {
	// Request bounds a whole exchange, body included.
	Request        time.Duration
	Connect        time.Duration
	KeepAlive      time.Duration
	IdleConn       time.Duration
	ResponseHeader time.Duration
}

func WithTimeouts(t Timeouts) Option {
	return func(c *clientConfig) {
		setIfPositive(&c.timeouts.Request, t.Request)
		setIfPositive(&c.timeouts.Connect, t.Connect)
		setIfPositive(&c.timeouts.KeepAlive, t.KeepAlive)
		setIfPositive(&c.timeouts.IdleConn, t.IdleConn)
		c.timeouts.ResponseHeader = t.ResponseHeader
	}
}

func setIfPositive(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// WithTransport adds a decorator. Decorators wrap in the order given, so
// the last one sees the request first.
func WithTransport(fn TransportFunc) Option {
	return func(c *clientConfig) {
		c.decorators = append(c.decorators, fn)
	}
}

// WithBaseTransport replaces the dialing transport, mostly for tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.base = rt
	}
}
