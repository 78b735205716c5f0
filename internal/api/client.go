// Package api talks to the Context Catcher backend over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// Client issues JSON requests against a backend base URL. It never retries.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout; zero leaves the default (none).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q: missing host", baseURL)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := &Client{
		base:   u,
		http:   &http.Client{},
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Briefing fetches the yesterday or today briefing.
func (c *Client) Briefing(ctx context.Context, day Day) (*Briefing, error) {
	switch day {
	case Yesterday, Today:
	default:
		return nil, fmt.Errorf("unknown briefing day %q", day)
	}
	var out Briefing
	if err := c.do(ctx, http.MethodGet, "/briefing/"+string(day), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Command posts a free-text command for the backend to interpret.
func (c *Client) Command(ctx context.Context, command string) (*CommandResult, error) {
	var out CommandResult
	if err := c.do(ctx, http.MethodPost, "/command", nil, CommandRequest{Command: command}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches the backend status summary.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health pings /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events lists recent events, optionally filtered by source.
func (c *Client) Events(ctx context.Context, limit int, source string) (*EventList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if source != "" {
		q.Set("source", source)
	}
	var out EventList
	if err := c.do(ctx, http.MethodGet, "/events", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Threads lists organised threads.
func (c *Client) Threads(ctx context.Context) (*ThreadList, error) {
	var out ThreadList
	if err := c.do(ctx, http.MethodGet, "/threads", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	log := c.logger.WithFields(logrus.Fields{"method": method, "path": path, "request_id": reqID})
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("body", strings.TrimSpace(string(snippet))).Debug("non-2xx response")
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Status: resp.Status}
	}
	log.Debug("request ok")
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrDecode, err)
	}
	return nil
}
