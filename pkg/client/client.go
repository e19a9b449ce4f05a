// Package client is an HTTP client for the pentools device API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/penosext/pentools/pkg/types"
)

// APIError is a non-2xx response from the device.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to a running pentools server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new pentools API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// doRequest performs an HTTP request with API key authentication and decodes
// a JSON response into out when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var msg struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Error != "" {
			apiErr.Message = msg.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*s = string(data)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Submit sends one line of terminal input.
func (c *Client) Submit(ctx context.Context, input string) (*types.CommandResult, error) {
	var res types.CommandResult
	if err := c.doRequest(ctx, http.MethodPost, "/terminal/commands", types.CommandRequest{Input: input}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// History returns the terminal history, oldest first.
func (c *Client) History(ctx context.Context) ([]string, error) {
	var res struct {
		History []string `json:"history"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/terminal/history", nil, &res); err != nil {
		return nil, err
	}
	return res.History, nil
}

// ListFiles lists path on the device. showHidden and keyword filter entries.
func (c *Client) ListFiles(ctx context.Context, path string, showHidden bool, keyword string) (*types.DirListing, error) {
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	if showHidden {
		q.Set("all", "true")
	}
	if keyword != "" {
		q.Set("find", keyword)
	}
	p := "/files"
	if len(q) > 0 {
		p += "?" + q.Encode()
	}

	var res types.DirListing
	if err := c.doRequest(ctx, http.MethodGet, p, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeviceInfo returns a device snapshot.
func (c *Client) DeviceInfo(ctx context.Context) (*types.DeviceInfo, error) {
	var info types.DeviceInfo
	if err := c.doRequest(ctx, http.MethodGet, "/device", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeviceControls returns the last applied screen and torch settings.
func (c *Client) DeviceControls(ctx context.Context) (*types.DeviceControls, error) {
	return c.controlsCall(ctx, http.MethodGet, "/device/controls", nil)
}

// SetBrightness sets the screen brightness in percent.
func (c *Client) SetBrightness(ctx context.Context, level int) (*types.DeviceControls, error) {
	return c.controlsCall(ctx, http.MethodPut, "/device/brightness", types.BrightnessRequest{Brightness: level})
}

// SetScreenTimeout selects a screen-on time by label ("30s" ... "unlimited").
func (c *Client) SetScreenTimeout(ctx context.Context, label string) (*types.DeviceControls, error) {
	return c.controlsCall(ctx, http.MethodPut, "/device/screen-timeout", types.ScreenTimeoutRequest{Timeout: label})
}

// SetTorch switches the torch. A nil on toggles it on the server.
func (c *Client) SetTorch(ctx context.Context, on *bool) (*types.DeviceControls, error) {
	return c.controlsCall(ctx, http.MethodPost, "/device/torch", types.TorchRequest{On: on})
}

func (c *Client) controlsCall(ctx context.Context, method, path string, body interface{}) (*types.DeviceControls, error) {
	var st types.DeviceControls
	if err := c.doRequest(ctx, method, path, body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Diagnostics returns the plain-text diagnostics report.
func (c *Client) Diagnostics(ctx context.Context) (string, error) {
	var report string
	if err := c.doRequest(ctx, http.MethodGet, "/device/diagnostics", nil, &report); err != nil {
		return "", err
	}
	return report, nil
}

// CheckUpdate asks the device to check for a newer release.
func (c *Client) CheckUpdate(ctx context.Context) (*types.UpdateState, error) {
	return c.updateCall(ctx, http.MethodPost, "/update/check")
}

// InstallUpdate checks for a release and installs it when it is newer.
func (c *Client) InstallUpdate(ctx context.Context) (*types.UpdateState, error) {
	st, err := c.CheckUpdate(ctx)
	if err != nil || !st.HasUpdate {
		return st, err
	}
	return c.updateCall(ctx, http.MethodPost, "/update/install")
}

// CleanupUpdates removes downloaded packages.
func (c *Client) CleanupUpdates(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/update/cleanup", nil, nil)
}

func (c *Client) updateCall(ctx context.Context, method, path string) (*types.UpdateState, error) {
	var state types.UpdateState
	if err := c.doRequest(ctx, method, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
