// Package remote talks to the progress authority over HTTP and provides an
// in-process stand-in for it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

const (
	DefaultBaseURL = "https://codingplatform-backend.onrender.com"
	defaultTimeout = 15 * time.Second

	// maxBodySize bounds how much of a response is read.
	maxBodySize = 4 << 20
)

// Client implements progress.SyncClient and summary.Client against the
// authority's REST API.
type Client struct {
	baseURL string
	session progress.Session
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout bounds each request. A request that runs out of time fails
// with progress.ErrRemoteUnavailable.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client for baseURL acting as session.
func NewClient(baseURL string, session progress.Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "remote")
	return c
}

func (c *Client) FetchAll(ctx context.Context) ([]progress.Topic, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/problems/questions", nil)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(topicsSchema, body); err != nil {
		return nil, invalidPayload(status, err)
	}

	var wire []wireTopic
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, invalidPayload(status, err)
	}
	topics, err := decodeTopics(wire)
	if err != nil {
		return nil, invalidPayload(status, err)
	}
	return topics, nil
}

func (c *Client) CommitToggle(ctx context.Context, topicID, problemID string, completed bool) (progress.Ack, error) {
	status, body, err := c.do(ctx, http.MethodPut, "/api/problems/update", wireToggle{
		TopicID:   topicID,
		ProblemID: problemID,
		Completed: completed,
	})
	if err != nil {
		return progress.Ack{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return progress.Ack{}, &progress.RemoteError{Status: status, Message: "Failed to update progress"}
	}
	return progress.Ack{Message: errorMessage(status, body)}, nil
}

func (c *Client) FetchSummary(ctx context.Context) (summary.Summary, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/problems/summary", nil)
	if err != nil {
		return summary.Summary{}, err
	}
	if err := checkSchema(summarySchema, body); err != nil {
		return summary.Summary{}, invalidPayload(status, err)
	}

	var s summary.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return summary.Summary{}, invalidPayload(status, err)
	}
	if err := checkSummary(s); err != nil {
		return summary.Summary{}, invalidPayload(status, err)
	}
	return s, nil
}

// HealthCheck verifies the authority answers at all. Any HTTP response
// counts as reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return unavailable(err)
	}
	resp.Body.Close()
	return nil
}

// do sends one request and returns the status and body of a 2xx response.
// Everything else is classified into the progress error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("authority request failed", "method", method, "path", path, "error", err)
		return 0, nil, unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, unavailable(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("authority request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, classify(resp.StatusCode, body)
	}
	return resp.StatusCode, body, nil
}
