// Package ranker is the client for the external ranking model: a single
// POST-style query returning a ranked candidate list. The model is treated as
// unreliable; every failure mode is folded into a non-success result so the
// search path can degrade to store-only ranking.
package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
)

// Candidate is one raw entry from the model: a direct id, a path-like
// locator, or both.
type Candidate struct {
	ID         string `json:"id,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

// Result is the outcome of one model query. Success is false on any
// transport failure, non-2xx response, timeout, or undecodable body; in that
// case Candidates is empty and Err carries the diagnostic message.
type Result struct {
	Success    bool        `json:"success"`
	Candidates []Candidate `json:"candidates"`
	Endpoint   string      `json:"endpoint"`
	Err        string      `json:"error,omitempty"`
}

// Health is the outcome of a health probe.
type Health struct {
	Status   string `json:"status"`
	Endpoint string `json:"endpoint"`
	Err      string `json:"error,omitempty"`
}

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Ranker defines the model operations the search engine consumes.
type Ranker interface {
	// Query asks the model for ranked candidates. endpoint overrides the
	// configured default when non-empty. Never returns a Go error.
	Query(ctx context.Context, term, endpoint string) Result
	// CheckHealth probes the model with a minimal test query. Operational
	// visibility only; it does not gate the search path.
	CheckHealth(ctx context.Context, endpoint string) Health
}

type queryPayload struct {
	Query string `json:"query"`
}

// Client implements Ranker over HTTP.
type Client struct {
	endpoint      string
	timeout       time.Duration
	healthTimeout time.Duration
	httpc         *http.Client
	logger        *zap.Logger
}

// NewClient creates a model client from config.
func NewClient(cfg *config.ModelConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:      cfg.Endpoint,
		timeout:       cfg.Timeout(),
		healthTimeout: cfg.HealthTimeout(),
		httpc:         &http.Client{},
		logger:        logger,
	}
}

// Endpoint returns the configured default endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// Query implements Ranker.
func (c *Client) Query(ctx context.Context, term, endpoint string) Result {
	target := c.endpoint
	if endpoint != "" {
		target = endpoint
	}

	candidates, err := c.post(ctx, target, term, c.timeout)
	if err != nil {
		c.logger.Warn("model request failed",
			zap.String("endpoint", target),
			zap.Error(err),
		)
		return Result{Success: false, Endpoint: target, Err: err.Error()}
	}
	return Result{Success: true, Candidates: candidates, Endpoint: target}
}

// CheckHealth implements Ranker.
func (c *Client) CheckHealth(ctx context.Context, endpoint string) Health {
	target := c.endpoint
	if endpoint != "" {
		target = endpoint
	}

	if _, err := c.post(ctx, target, "test query", c.healthTimeout); err != nil {
		return Health{Status: StatusUnhealthy, Endpoint: target, Err: err.Error()}
	}
	return Health{Status: StatusHealthy, Endpoint: target}
}

func (c *Client) post(ctx context.Context, endpoint, term string, timeout time.Duration) ([]Candidate, error) {
	body, err := json.Marshal(queryPayload{Query: term})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var candidates []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	return candidates, nil
}
