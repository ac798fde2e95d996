// Package api is a typed client for the AgentSmith chat backend.
//
// Every operation performs exactly one HTTP request against the base URL the
// client was built with. There are no retries and no client-side timeout;
// bound calls with the context instead. All failures come back as
// *RequestError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultUploadPath = "/documents/upload"
	// LegacyUploadPath is the upload route of earlier backend versions.
	LegacyUploadPath = "/upload-pdf"
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	uploadPath string
	httpClient *http.Client
	metrics    *metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUploadPath overrides the route used by UploadDocument.
func WithUploadPath(path string) Option {
	return func(c *Client) {
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		c.uploadPath = path
	}
}

// WithMetrics records request counts and latencies on reg. A nil reg
// disables metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg == nil {
			c.metrics = nil
			return
		}
		c.metrics = newMetrics(reg)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		uploadPath: DefaultUploadPath,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage posts a chat message together with the prior conversation.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []Turn{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, Operation: "send_message", Message: fmt.Sprintf("failed to encode request: %v", err), Err: err}
	}

	var resp ChatResponse
	if err := c.do(ctx, "send_message", http.MethodPost, "/chat", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadDocument sends r as the multipart form field "file" named filename.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = io.Copy(part, r)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, Operation: "upload_document", Message: fmt.Sprintf("failed to read %s: %v", filename, err), Err: err}
	}

	var resp UploadResponse
	if err := c.do(ctx, "upload_document", http.MethodPost, c.uploadPath, mw.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDocuments fetches the current document snapshot.
func (c *Client) ListDocuments(ctx context.Context) (*DocumentInfo, error) {
	var resp DocumentInfo
	if err := c.do(ctx, "list_documents", http.MethodGet, "/documents", "", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Documents == nil {
		resp.Documents = []string{}
	}
	return &resp, nil
}

// ClearDocuments deletes every document on the backend. Any 2xx body is accepted.
func (c *Client) ClearDocuments(ctx context.Context) error {
	return c.do(ctx, "clear_documents", http.MethodDelete, "/documents", "", nil, nil)
}

// Health reports backend status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one request and decodes a 2xx JSON body into result when result is non-nil.
func (c *Client) do(ctx context.Context, operation, method, path, contentType string, body io.Reader, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(operation, start, err)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RequestError{Kind: KindTransport, Operation: operation, Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Backend request failed", "operation", operation, "error", err)
		return &RequestError{Kind: KindTransport, Operation: operation, Message: fmt.Sprintf("failed to reach backend: %v", err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Kind: KindTransport, Operation: operation, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	c.logger.Debug("Backend request", "operation", operation, "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{Kind: KindStatus, Operation: operation, StatusCode: resp.StatusCode, Message: detailMessage(data)}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &RequestError{Kind: KindDecode, Operation: operation, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	return nil
}
