// Package client talks to the storefront API over HTTP. It implements the cart
// engine's Catalog and Backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"carrethree/internal/cart"
	"carrethree/internal/middleware"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// APIError is a non-2xx reply from the API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

var (
	_ cart.Catalog = (*Client)(nil)
	_ cart.Backend = (*Client)(nil)
)

// Client is a storefront API client. Request paths resolve below BaseURL.
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
}

// New creates a new instance of Client. A path in baseURL, such as
// http://host/shop, prefixes every request.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: u, HTTP: httpClient}, nil
}

// do sends payload as JSON and decodes a 2xx reply into out. Failures come back
// wrapped in the cart error taxonomy.
func (c *Client) do(ctx context.Context, method, path, rawQuery, token string, payload, out interface{}) error {
	rel := &url.URL{Path: strings.TrimPrefix(path, "/"), RawQuery: rawQuery}
	u := c.BaseURL.ResolveReference(rel)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", cart.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", cart.ErrNetwork, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var envelope middleware.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = cart.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		sentinel = cart.ErrValidation
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		sentinel = ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		sentinel = cart.ErrNetwork
	default:
		return apiErr
	}
	return fmt.Errorf("%w: %w", sentinel, apiErr)
}
