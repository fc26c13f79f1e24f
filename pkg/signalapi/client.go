// Package signalapi is a small Go SDK for the trading-signal backend: it
// fetches the live state document and reads or writes the settings document.
package signalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultStatePath    = "/api/state"
	DefaultSettingsPath = "/settings"
	defaultTimeout      = 30 * time.Second
)

// Client talks to one backend instance.
type Client struct {
	baseURL      string
	statePath    string
	settingsPath string
	httpClient   *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithStatePath overrides the state document path.
func WithStatePath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.statePath = p
		}
	}
}

// WithSettingsPath overrides the settings document path.
func WithSettingsPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.settingsPath = p
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		statePath:    DefaultStatePath,
		settingsPath: DefaultSettingsPath,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchState performs one uncached GET of the state document. It never
// retries; the caller's polling cadence is the retry policy.
func (c *Client) FetchState(ctx context.Context) (*Snapshot, error) {
	op := "GET " + c.statePath
	body, err := c.do(ctx, http.MethodGet, c.statePath, nil, op)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &FetchError{Op: op, Reason: ReasonParse, Err: err}
	}
	return &snap, nil
}

// Settings is the backend settings document. Its keys are opaque to the
// client and round-trip untouched.
type Settings map[string]any

// GetSettings loads the settings document.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	op := "GET " + c.settingsPath
	body, err := c.do(ctx, http.MethodGet, c.settingsPath, nil, op)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal(body, &s); err != nil || s == nil {
		if err == nil {
			err = errNotObject
		}
		return nil, &FetchError{Op: op, Reason: ReasonParse, Err: err}
	}
	return s, nil
}

// PutSettings replaces the settings document.
func (c *Client) PutSettings(ctx context.Context, s Settings) error {
	op := "PUT " + c.settingsPath
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, c.settingsPath, payload, op)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, op string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &FetchError{Op: op, Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Reason: ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Op: op, Reason: ReasonHTTPStatus, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, Reason: ReasonNetwork, Err: err}
	}
	return data, nil
}
