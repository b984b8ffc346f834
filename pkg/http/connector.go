package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const acceptJSON = "application/json"

// Connector talks JSON to a single base URL. Each call makes one attempt;
// retry policy belongs to the caller.
type Connector struct {
	baseURL string
	client  *http.Client
}

func NewConnector(baseURL string, opts ...Option) *Connector {
	return &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newClient(opts...),
	}
}

// BaseURL returns the address every endpoint is resolved against.
func (c *Connector) BaseURL() string {
	return c.baseURL
}

// payload is a prepared request body. The zero value sends none.
type payload struct {
	body        io.Reader
	contentType string
	info        bodyInfo
}

// DoRequest sends reqBody as JSON, if not nil, and decodes a JSON reply
// into respBody, if not nil.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any) error {
	var p payload
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		p = payload{
			body:        bytes.NewReader(data),
			contentType: "application/json",
			info:        bodyInfo{json: data, size: len(data)},
		}
	}
	return c.send(ctx, method, endpoint, p, respBody)
}

// DoMultipartRequest sends the form written by prepare. The content type
// is the writer's, which carries the boundary.
func (c *Connector) DoMultipartRequest(ctx context.Context, method, endpoint string, prepare func(*multipart.Writer) error, respBody any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := prepare(w); err != nil {
		return fmt.Errorf("prepare multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	return c.send(ctx, method, endpoint, payload{
		body:        &buf,
		contentType: w.FormDataContentType(),
		info:        bodyInfo{size: buf.Len()},
	}, respBody)
}

func (c *Connector) send(ctx context.Context, method, endpoint string, p payload, respBody any) error {
	if p.body != nil {
		ctx = withBodyInfo(ctx, p.info)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, p.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", acceptJSON)
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyNetworkError(c.baseURL, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, respBody)
}

// decodeResponse turns a non-2xx status into HTTPError and an undecodable
// 2xx body into DecodeError.
func decodeResponse(resp *http.Response, out any) error {
	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if readErr != nil {
			msg = unknownErrorBody
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	if readErr != nil {
		return fmt.Errorf("read response body: %w", readErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Body: truncate(body, maxDecodeErrorBody), Err: err}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
