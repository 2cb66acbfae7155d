// Package calendar is the HTTP client for the external calendar/email
// service that creates Google Calendar events and dispatches agenda emails.
// Only the narrow request/response contract lives here.
package calendar

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

	"github.com/parley-hq/parley/pkg/models"
)

const (
	defaultTimeout  = 45 * time.Second
	maxRetries      = 3
	maxResponseSize = 1 * 1024 * 1024
)

// EventRequest asks the service to create a calendar event.
type EventRequest struct {
	Title          string    `json:"title"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	Attendees      []string  `json:"attendees"`
	CreateMeetLink bool      `json:"createMeetLink"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
}

// EventResult is the creation outcome. MeetingLink is only set when a
// video-conference link was requested.
type EventResult struct {
	Success bool `json:"success"`
	Event   struct {
		MeetingLink string `json:"meetingLink,omitempty"`
	} `json:"event"`
}

// SendAgendaRequest dispatches the agenda email to every attendee.
type SendAgendaRequest struct {
	MeetingID     string             `json:"meetingId"`
	Attendees     []models.Attendee  `json:"attendees"`
	MeetingData   models.MeetingData `json:"meetingData"`
	AgendaContent string             `json:"agendaContent"`
}

// SendAgendaResult acknowledges the asynchronous email job.
type SendAgendaResult struct {
	JobID string `json:"jobId"`
}

// JobStatus is the polled state of an email job.
type JobStatus struct {
	Status         string `json:"status"` // pending, completed, failed, partially_failed
	EmailsSent     int    `json:"emailsSent"`
	EmailsFailed   int    `json:"emailsFailed"`
	TotalAttendees int    `json:"totalAttendees"`
}

// Client calls the calendar/email service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("module", "calendar"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// CreateEvent creates the calendar event and returns the meeting link when
// one was requested.
func (c *Client) CreateEvent(ctx context.Context, req EventRequest) (*EventResult, error) {
	var result EventResult
	if err := c.do(ctx, http.MethodPost, "/v1/events", req, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, fmt.Errorf("calendar service refused to create event for %q", req.Title)
	}

	return &result, nil
}

// SendAgenda starts the asynchronous agenda email job.
func (c *Client) SendAgenda(ctx context.Context, req SendAgendaRequest) (*SendAgendaResult, error) {
	var result SendAgendaResult
	if err := c.do(ctx, http.MethodPost, "/v1/agenda-emails", req, &result); err != nil {
		return nil, err
	}

	if result.JobID == "" {
		return nil, fmt.Errorf("calendar service returned no job ID for meeting %s", req.MeetingID)
	}

	return &result, nil
}

// EmailJobStatus polls an agenda email job.
func (c *Client) EmailJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var result JobStatus
	if err := c.do(ctx, http.MethodGet, "/v1/agenda-emails/"+jobID, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte

	if payload != nil {
		var err error

		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal calendar request: %w", err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.MaxInterval = 10 * time.Second

	operation := func() error {
		return c.doOnce(ctx, method, path, body, out)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Calendar request failed", "path", path, "error", err)

		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("calendar service returned status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(fmt.Errorf("calendar service returned status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode calendar response: %w", err))
	}

	return nil
}
