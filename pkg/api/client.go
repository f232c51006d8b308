// Package api implements the HTTP contract of the remote project
// workspace: upload, finalize, cancel, status, file tree, and signed
// file tokens. Every mutating request carries the CSRF token as a
// header, and every response is checked twice: transport status and
// the domain-level success flag are independent failure signals.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yosida95/uritemplate/v3"
)

const (
	// csrfHeader carries the page-level CSRF trust anchor on every
	// mutating request.
	csrfHeader = "X-CSRF-Token"

	// requestIDHeader correlates client requests with server logs.
	requestIDHeader = "X-Request-Id"

	// defaultTimeout bounds any single workspace request.
	defaultTimeout = 60 * time.Second

	// slogKeyError is the slog attribute key for error values.
	slogKeyError = "error"
)

// Endpoints holds the workspace API surface. CancelTemplate is an
// RFC 6570 URI template with a {session_id} variable; the remaining
// fields are plain URLs.
type Endpoints struct {
	UploadZip      string `yaml:"upload_zip"`
	UploadFile     string `yaml:"upload_file"`
	Finalize       string `yaml:"finalize"`
	CancelTemplate string `yaml:"cancel"`
	Status         string `yaml:"status"`
	Tree           string `yaml:"tree"`
	Sign           string `yaml:"sign"`
	DownloadBase   string `yaml:"download_base"`
}

// Config configures a workspace API client.
type Config struct {
	Endpoints Endpoints

	// CSRFToken is read from the page-level trust anchor (or config)
	// and sent with every mutating request.
	CSRFToken string

	// HTTPClient overrides the transport. Defaults to a client with a
	// 60 second timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client issues requests against the workspace HTTP surface.
type Client struct {
	http       *http.Client
	endpoints  Endpoints
	csrf       string
	logger     *slog.Logger
	cancelTmpl *uritemplate.Template
}

// New creates a workspace API client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoints.Status == "" {
		return nil, fmt.Errorf("api: status endpoint is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cancelTmpl *uritemplate.Template
	if cfg.Endpoints.CancelTemplate != "" {
		tmpl, err := uritemplate.New(cfg.Endpoints.CancelTemplate)
		if err != nil {
			return nil, fmt.Errorf("api: invalid cancel template %q: %w", cfg.Endpoints.CancelTemplate, err)
		}
		cancelTmpl = tmpl
	}

	return &Client{
		http:       client,
		endpoints:  cfg.Endpoints,
		csrf:       cfg.CSRFToken,
		logger:     logger,
		cancelTmpl: cancelTmpl,
	}, nil
}

// Endpoints returns the configured endpoint set.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// CancelURL expands the per-session cancel URL from the configured
// URI template.
func (c *Client) CancelURL(sessionID string) (string, error) {
	if c.cancelTmpl == nil {
		return "", fmt.Errorf("api: cancel endpoint not configured")
	}
	expanded, err := c.cancelTmpl.Expand(uritemplate.Values{
		"session_id": uritemplate.String(sessionID),
	})
	if err != nil {
		return "", fmt.Errorf("api: expanding cancel template: %w", err)
	}
	return expanded, nil
}

// DownloadURL builds a signed download URL: the percent-encoded path
// appended to the download base, with the token as a query parameter.
// Each path segment is encoded individually so separators survive.
func (c *Client) DownloadURL(relativePath, token string) string {
	base := strings.TrimSuffix(c.endpoints.DownloadBase, "/")
	segments := strings.Split(relativePath, "/")
	encoded := make([]string, len(segments))
	for i, segment := range segments {
		encoded[i] = url.PathEscape(segment)
	}
	return base + "/" + strings.Join(encoded, "/") + "?token=" + url.QueryEscape(token)
}

// newRequest builds a request with the standard headers. Mutating
// methods carry the CSRF token.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	if method != http.MethodGet && c.csrf != "" {
		req.Header.Set(csrfHeader, c.csrf)
	}
	return req, nil
}

// doJSON performs a request with an optional JSON body and decodes the
// response into a generic payload. A malformed response body degrades
// to a nil payload with a logged diagnostic; it never fails the call.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("api: encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("api: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	payload := c.parseJSON(resp.Body)
	return resp.StatusCode, payload, nil
}

// parseJSON decodes a response body into a generic payload. Parse
// failures are absorbed here: they are logged and reported as a nil
// payload so callers treat them as an empty or failed result.
func (c *Client) parseJSON(body io.Reader) map[string]any {
	data, err := io.ReadAll(body)
	if err != nil {
		c.logger.Warn("api: reading response body", slogKeyError, err)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("api: malformed JSON response", slogKeyError,
			WrapError(KindMalformedResponse, "decoding response body", err))
		return nil
	}
	return payload
}

// transportError classifies a transport failure as a timeout or a
// generic network failure.
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return WrapError(KindTimeout, "request timed out", err)
	}
	return WrapError(KindNetworkFailure, "network error during request", err)
}

// envelopeError checks both failure signals independently: a transport
// status outside [200,300) or a missing/false success flag is a domain
// failure carrying the server-supplied message when present.
func envelopeError(kind Kind, status int, payload map[string]any, generic string) error {
	ok := status >= http.StatusOK && status < http.StatusMultipleChoices
	success, _ := payload["success"].(bool)
	if ok && success {
		return nil
	}
	if message, _ := payload["error"].(string); message != "" {
		return NewError(kind, message)
	}
	return NewError(kind, fmt.Sprintf("%s (status %d)", generic, status))
}
