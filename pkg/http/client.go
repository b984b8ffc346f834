package http

import (
	"net"
	"net/http"
	"time"
)

const (
	tlsHandshakeTimeout = 10 * time.Second
	maxIdleConnsPerHost = 4
)

type clientConfig struct {
	timeouts   Timeouts
	decorators []TransportFunc
	base       http.RoundTripper
}

func newClient(opts ...Option) *http.Client {
	cfg := &clientConfig{
		timeouts: Timeouts{
			Request:   2 * time.Minute,
			Connect:   10 * time.Second,
			KeepAlive: 90 * time.Second,
			IdleConn:  90 * time.Second,
			// generation can take a while before the first header byte
			ResponseHeader: 0,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	rt := cfg.base
	if rt == nil {
		dialer := &net.Dialer{
			Timeout:   cfg.timeouts.Connect,
			KeepAlive: cfg.timeouts.KeepAlive,
		}
		rt = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConnsPerHost:   maxIdleConnsPerHost,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: cfg.timeouts.ResponseHeader,
			IdleConnTimeout:       cfg.timeouts.IdleConn,
		}
	}
	for _, decorate := range cfg.decorators {
		rt = decorate(rt)
	}

	return &http.Client{
		Timeout:   cfg.timeouts.Request,
		Transport: rt,
	}
}
