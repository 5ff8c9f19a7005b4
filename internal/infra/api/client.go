// Package api implements the per-credential client for the upstream
// rate-limited REST API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds upstream API settings.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	ProbePath string        `yaml:"probe_path"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Client issues authenticated requests with one API key.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient creates a client bound to key.
func NewClient(baseURL, key string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Factory returns a pool.ClientFactory for cfg.
func Factory(cfg Config) func(key string) (*Client, error) {
	return func(key string) (*Client, error) {
		return NewClient(cfg.BaseURL, key, cfg.Timeout)
	}
}

// Get performs a GET request and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, body)
	}
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// APIError is an upstream error response.
type APIError struct {
	Status       int
	ProviderCode int
	Message      string
}

func (e *APIError) Error() string {
	if e.ProviderCode != 0 {
		return fmt.Sprintf("api error %d (code %d): %s", e.Status, e.ProviderCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Code returns the provider error code when present, otherwise the HTTP
// status. A 429 status always wins.
func (e *APIError) Code() int {
	if e.ProviderCode != 0 && e.Status != http.StatusTooManyRequests {
		return e.ProviderCode
	}
	return e.Status
}

// Upstream error bodies come in one of two shapes:
//
//	{"code": 88, "message": "Rate limit exceeded"}
//	{"errors": [{"code": 88, "message": "Rate limit exceeded"}]}
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Message: http.StatusText(status)}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
			e.Message = text
		}
		return e
	}
	switch {
	case len(parsed.Errors) > 0:
		e.ProviderCode = parsed.Errors[0].Code
		if parsed.Errors[0].Message != "" {
			e.Message = parsed.Errors[0].Message
		}
	case parsed.Code != 0 || parsed.Message != "":
		e.ProviderCode = parsed.Code
		if parsed.Message != "" {
			e.Message = parsed.Message
		}
	}
	return e
}
