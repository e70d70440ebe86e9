// Package httpx is the shared HTTP client used by every provider dialect,
// the embedding provider, and the optional external vector-store adapter.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultClient is a shared *http.Client with sensible pooling defaults.
var DefaultClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client wraps an *http.Client with a base URL and default headers.
type Client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// Config configures a new Client.
type Config struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Timeout, Transport: DefaultClient.Transport}
		} else {
			client = DefaultClient
		}
	}
	return &Client{client: client, baseURL: cfg.BaseURL, headers: cfg.Headers}
}

// Request describes a single HTTP call.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    interface{}
	Query   map[string]string
}

// Response is a fully-buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		q := url.Values{}
		for k, v := range req.Query {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// TransportError indicates the request never reached a server (DNS, TLS,
// connection refused, timeout before any status line).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "httpx: transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Do performs req and returns the buffered response. Network-level
// failures (never reaching an HTTP status) are reported as *TransportError;
// non-2xx statuses are returned as a normal *Response with no error, so
// callers can build their own status-aware error types.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// DoStream performs req and returns the live *http.Response for streaming
// reads (the caller owns closing the body). Non-2xx responses are returned
// as-is with the body unread; the caller checks the status and reads the
// error body itself.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// PostJSON is a convenience wrapper for the common POST+JSON body case.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}, query map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Query: query})
}
