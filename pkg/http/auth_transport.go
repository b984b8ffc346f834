package http

import "net/http"

// headerTransport fills in headers the request does not set itself.
type headerTransport struct {
	header http.Header
	next   http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, values := range t.header {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}
	return t.next.RoundTrip(req)
}

// WithStaticHeader sends key: value on every request. An empty value is
// ignored.
func WithStaticHeader(key, value string) Option {
	if value == "" {
		return func(*clientConfig) {}
	}
	h := http.Header{}
	h.Set(key, value)
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{header: h, next: rt}
	})
}

// WithAuthToken sends a bearer token when one is configured.
func WithAuthToken(token string) Option {
	if token == "" {
		return func(*clientConfig) {}
	}
	return WithStaticHeader("Authorization", "Bearer "+token)
}

func WithUserAgent(userAgent string) Option {
	return WithStaticHeader("User-Agent", userAgent)
}
