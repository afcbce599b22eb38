package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
)

const maxResponseBytes = 4 << 20

// Envelope is the response shape every backend endpoint uses.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Message string `json:"message"`
}

// APIError is a non-success backend answer: a non-2xx status or success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusNotFound:
		return errs.ErrNotFound
	default:
		return errs.ErrBackend
	}
}

// MessageFrom returns the backend message of err, or fallback when there is none.
func MessageFrom(err error, fallback string) string {
	var apiErr *APIError
	if errs.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the remote REST API. Authentication is the job of the
// http.Client's transport; Client itself never touches tokens.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// send performs one JSON call and unwraps the envelope. A missing data field
// yields the zero value of T.
func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return zero, fmt.Errorf("[backend %s %s] encode request: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return zero, fmt.Errorf("[backend %s %s] build request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("[backend %s %s] %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, fmt.Errorf("[backend %s %s] read response: %w", method, path, err)
	}

	var envelope Envelope[T]
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}
	if decodeErr != nil {
		return zero, fmt.Errorf("[backend %s %s] %w: %v", method, path, errs.ErrInvalidResponse, decodeErr)
	}
	if !envelope.Success {
		return zero, &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}
	if envelope.Data == nil {
		return zero, nil
	}
	return *envelope.Data, nil
}
