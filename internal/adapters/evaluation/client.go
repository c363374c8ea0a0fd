// Package evaluation is the HTTP client for the external LLM evaluation
// pipeline: status polling and final leaderboard generation.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/promptarena/verdict/pkg/logger"
	"github.com/promptarena/verdict/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultRequestTimeout = 30 * time.Second
)

// Client calls the evaluation service. Each call carries an explicit
// timeout and no automatic retry; retrying is the operator's decision.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultRequestTimeout,
		log:     logger.Get().Named("evaluation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// Status returns the pipeline's status enum for the competition. The
// terminal value the gate waits for is "completed".
func (c *Client) Status(ctx context.Context, competitionID string) (string, error) {
	metrics.RecordEvaluationCall("status")
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/competitions/%s/evaluation-status", c.baseURL, url.PathEscape(competitionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordEvaluationError()
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("competition %s: %w", competitionID, ErrUnknownCompetition)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordEvaluationError()
		return "", fmt.Errorf("%w: status endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.RecordEvaluationError()
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return body.Status, nil
}

// GenerateLeaderboard asks the pipeline to compute the final leaderboard.
// The endpoint overwrites any previous result, so repeat calls are allowed.
func (c *Client) GenerateLeaderboard(ctx context.Context, competitionID string) error {
	metrics.RecordEvaluationCall("generate")
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/competitions/%s/final-leaderboard", c.baseURL, url.PathEscape(competitionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("build generate request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordEvaluationError()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		c.log.Info(ctx, "leaderboard generation accepted", logger.String("competition", competitionID))
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("competition %s: %w", competitionID, ErrUnknownCompetition)
	default:
		metrics.RecordEvaluationError()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: generate endpoint returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}
