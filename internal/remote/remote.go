// Package remote calls the hosted backend's serverless functions. Every call
// is a JSON POST to <base URL>/functions/v1/<name> carrying the project API
// key both as a bearer token and in the apikey header.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds one function call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

var (
	ErrNotConfigured = errors.New("remote backend not configured")
	ErrStatus        = errors.New("unexpected response status")
)

// Client posts to the backend's functions.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for the backend at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FunctionURL returns the URL of the named function.
func (c *Client) FunctionURL(name string) string {
	return c.baseURL + "/functions/v1/" + name
}

// Call posts in as JSON to the named function and, when out is non-nil,
// decodes the response body into it. Non-2xx responses return ErrStatus.
func (c *Client) Call(ctx context.Context, function string, in, out any) error {
	if c.baseURL == "" || c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", function, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.FunctionURL(function), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", ErrStatus, function, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", function, err)
	}
	return nil
}
