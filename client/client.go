// Package client consumes the external REST backend that owns all business
// data (posts, comments, likes, users, images, feedback). Each domain file
// validates input shape before any network call and unwraps the backend's
// `{data}` envelope; HTTP failures propagate unchanged to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anoo/models"
)

// Client is the shared HTTP wrapper for the backend API. It adds the base
// URL, JSON headers and the forwarded session cookie. No retry, no timeout
// beyond the transport default, no circuit breaking.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a backend API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

type sessionKey struct{}

// WithSession stores the inbound request's Cookie header so outbound calls
// carry the caller's backend session.
func WithSession(ctx context.Context, cookieHeader string) context.Context {
	if cookieHeader == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, cookieHeader)
}

func sessionFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey{}).(string); ok {
		return s
	}
	return ""
}

// HasSession reports whether the context carries a forwarded session cookie.
func HasSession(ctx context.Context) bool {
	return sessionFrom(ctx) != ""
}

type setCookieKey struct{}

// CaptureSetCookies registers a sink for Set-Cookie headers on backend
// responses. The auth routes use it to relay the backend's session cookie to
// the browser.
func CaptureSetCookies(ctx context.Context, sink *[]string) context.Context {
	return context.WithValue(ctx, setCookieKey{}, sink)
}

func setCookieSink(ctx context.Context) *[]string {
	if sink, ok := ctx.Value(setCookieKey{}).(*[]string); ok {
		return sink
	}
	return nil
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) del(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do executes one backend call and returns the raw `data` payload. Non-2xx
// responses become *models.AppError carrying the upstream status and the
// message from the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session := sessionFrom(ctx); session != "" {
		req.Header.Set("Cookie", session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.AppError{
			Code:    models.CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: "backend request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if sink := setCookieSink(ctx); sink != nil {
		*sink = append(*sink, resp.Header.Values("Set-Cookie")...)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.AppError{
			Code:    models.CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: "backend response read failed",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamError(resp.StatusCode, upstreamMessage(raw))
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &models.AppError{
			Code:    models.CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: "backend returned malformed JSON",
			Err:     err,
		}
	}
	return env.Data, nil
}

// upstreamMessage pulls a human-readable message out of an error body.
func upstreamMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return ""
}

// isNull reports whether the payload is absent or JSON null, in which case
// callers substitute their documented defaults.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
