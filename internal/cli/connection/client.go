package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each request made by Client.
const DefaultTimeout = 30 * time.Second

const userAgent = "pagegate-cli/1.0"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] request failed with status %d", e.Code, e.Status)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to a pagegate server. It keeps cookies between requests, so
// after Login every call carries the admin session.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for server. A bare host:port gets http://.
func NewClient(server string, timeout time.Duration) (*Client, error) {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// BaseURL returns the server root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login opens an admin session with secret.
func (c *Client) Login(ctx context.Context, secret string) error {
	return c.Do(ctx, http.MethodPost, "/api/admin/login", map[string]string{"password": secret}, nil)
}

// Logout closes the admin session opened by Login.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/api/admin/logout", nil, nil)
}

// Get performs a GET and decodes the JSON answer into target.
func (c *Client) Get(ctx context.Context, path string, target any) error {
	return c.Do(ctx, http.MethodGet, path, nil, target)
}

// Post sends body as JSON and decodes the answer into target.
func (c *Client) Post(ctx context.Context, path string, body, target any) error {
	return c.Do(ctx, http.MethodPost, path, body, target)
}

// Patch sends body as JSON and decodes the answer into target.
func (c *Client) Patch(ctx context.Context, path string, body, target any) error {
	return c.Do(ctx, http.MethodPatch, path, body, target)
}

// Delete performs a DELETE and decodes the answer into target.
func (c *Client) Delete(ctx context.Context, path string, target any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, target)
}

// Do performs one request. A nil body sends no payload; a nil target
// discards the answer.
func (c *Client) Do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return parseResponse(resp, target)
}

func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Code: errResp.Error}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
