// Package assistant is the HTTP client for the external AI service that
// extracts scheduling intent and drafts titles and agendas. The model
// behind the service is out of scope here; this package only speaks its
// narrow JSON contract, with bounded retry and structural response
// validation.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// defaultTimeout bounds one assistant call end to end.
	defaultTimeout = 45 * time.Second

	// maxRetries caps retry attempts after the initial call.
	maxRetries = 3

	// maxResponseSize limits the response body read.
	maxResponseSize = 10 * 1024 * 1024

	// MaxPurposeBytes is the truncation limit for the purpose field before
	// it is sent to the assistant.
	MaxPurposeBytes = 8 * 1024
)

// Client calls the assistant service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates an assistant client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("module", "assistant"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ExtractIntent classifies a chat message and extracts meeting fields.
func (c *Client) ExtractIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	var result IntentResult
	if err := c.post(ctx, "/v1/intent", req, intentSchema, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GenerateTitle produces a title and enhanced purpose for the meeting.
func (c *Client) GenerateTitle(ctx context.Context, req TitleRequest) (*TitleResult, error) {
	req.Purpose = Truncate(req.Purpose, MaxPurposeBytes)

	var result TitleResult
	if err := c.post(ctx, "/v1/title", req, titleSchema, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GenerateAgenda drafts the meeting agenda.
func (c *Client) GenerateAgenda(ctx context.Context, req AgendaRequest) (*AgendaResult, error) {
	req.EnhancedPurpose = Truncate(req.EnhancedPurpose, MaxPurposeBytes)

	var result AgendaResult
	if err := c.post(ctx, "/v1/agenda", req, agendaSchema, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// post sends the payload and decodes the response after validating its
// structure. Transient failures retry with exponential backoff capped at
// 10s; client errors are permanent.
func (c *Client) post(ctx context.Context, path string, payload any, schema string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal assistant request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.MaxInterval = 10 * time.Second

	operation := func() error {
		return c.doOnce(ctx, path, body, schema, out)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte, schema string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Assistant request failed", "path", path, "error", err)

		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(fmt.Errorf("assistant returned status %d", resp.StatusCode))
	}

	if err := validateResponse(schema, data); err != nil {
		return backoff.Permanent(err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode assistant response: %w", err))
	}

	return nil
}

// Truncate caps a string at limit bytes without splitting the last rune.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	truncated := s[:limit]
	for len(truncated) > 0 && truncated[len(truncated)-1]&0xC0 == 0x80 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated
}
