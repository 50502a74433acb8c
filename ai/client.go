// Package ai is the client for an OpenAI-compatible chat-completion
// endpoint, with bounded retries around the outbound call.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/jlvergne/masterbot/convo"
)

const (
	requestTimeout = 60 * time.Second
	connectTimeout = 15 * time.Second

	maxAttempts     = 3
	backoffInitial  = 1 * time.Second
	backoffCap      = 8 * time.Second
	temperature     = 0.35
	defaultMaxToken = 700

	maxBodyBytes  = 1 << 20
	logBodyLimit  = 400
	pingBodyLimit = 120
)

type Client struct {
	baseURL  string
	apiKey   string
	model    string
	http     *http.Client
	schedule func() backoff.BackOff
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithSchedule replaces the retry backoff schedule. Each call to
// Complete gets a fresh schedule from the factory.
func WithSchedule(factory func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.schedule = factory }
}

func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		schedule: retrySchedule,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retrySchedule is the default backoff: exponential from 1s, doubling,
// capped at 8s, no jitter, 3 total attempts.
func retrySchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitial
	b.MaxInterval = backoffCap
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

// Option adjusts a single Complete call.
type Option func(*completionRequest)

// WithMaxTokens overrides the output-length cap for one call.
func WithMaxTokens(n int) Option {
	return func(r *completionRequest) { r.MaxTokens = n }
}

type completionRequest struct {
	Model       string       `json:"model"`
	Messages    []convo.Turn `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the full turn sequence to the completion endpoint and
// returns the first choice's content, trimmed. Transport failures and
// non-2xx statuses are retried per the backoff schedule; a malformed
// response body is returned immediately as *BadReplyError.
func (c *Client) Complete(ctx context.Context, turns []convo.Turn, opts ...Option) (string, error) {
	payload := completionRequest{
		Model:       c.model,
		Messages:    turns,
		Temperature: temperature,
		MaxTokens:   defaultMaxToken,
	}
	for _, opt := range opts {
		opt(&payload)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	attempt := func() (string, error) {
		text, err := c.post(ctx, body)
		if err != nil {
			var bad *BadReplyError
			if errors.As(err, &bad) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return text, nil
	}
	return backoff.RetryWithData(attempt, backoff.WithContext(c.schedule(), ctx))
}

// post performs one request/response cycle.
func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		trimmed := truncate(string(raw), logBodyLimit)
		log.Error().Int("status", resp.StatusCode).Str("body", trimmed).Msg("completion endpoint error")
		return "", &StatusError{Code: resp.StatusCode, Body: trimmed}
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Choices) == 0 {
		trimmed := truncate(string(raw), logBodyLimit)
		log.Error().Str("body", trimmed).Msg("unexpected completion response")
		return "", &BadReplyError{Body: trimmed}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Ping probes the provider's model-listing endpoint. It reports the raw
// HTTP status; on non-200 the returned body is truncated for display.
func (c *Client) Ping(ctx context.Context) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return 0, "", fmt.Errorf("build models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("models request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return resp.StatusCode, "", nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return resp.StatusCode, truncate(string(raw), pingBodyLimit), nil
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
