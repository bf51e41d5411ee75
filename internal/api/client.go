// Package api is the client for the screening backend's REST interface.
//
// Every response passes through an adapter (adapter.go) that normalizes the
// backend's unstable shapes, and every failure surfaces as *Error so callers
// have a single error path.
package api

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

	"yeoneunal/internal/logging"

	"github.com/google/uuid"
)

const defaultMaxBodyBytes = 4 << 20

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080/api/v1.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBody:    defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	op          Operation
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(op Operation, method, path string, payload interface{}) (request, error) {
	req := request{op: op, method: method, path: path, contentType: "application/json"}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, &Error{Op: op, Kind: KindEncode, Err: err}
		}
		req.body = bytes.NewReader(data)
	}
	return req, nil
}

// do sends the request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	reqID := uuid.NewString()
	rl := logging.WithRequestID(logging.CategoryAPI, reqID).WithField("op", string(r.op))
	timer := logging.StartTimer(logging.CategoryAPI, string(r.op))
	defer timer.StopWithThreshold(5 * time.Second)

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	rl.Debug("%s %s", r.method, r.path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIError("%s %s [req:%s]: %v", r.method, r.path, rl.RequestID(), err)
		return nil, &Error{Op: r.op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		rl.Warn("read body: %v", err)
		return nil, &Error{Op: r.op, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newHTTPError(r.op, resp.StatusCode, resp.Header.Get("Content-Type"), data)
		rl.Warn("HTTP %d: %s", resp.StatusCode, apiErr.Message())
		return nil, apiErr
	}

	rl.Debug("HTTP %d (%d bytes)", resp.StatusCode, len(data))
	return data, nil
}

func pathID(id int64) string {
	return fmt.Sprintf("%d", id)
}
