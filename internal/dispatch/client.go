// Package dispatch implements the authenticated outbound-request layer for
// the platform backend: it attaches the session's bearer credential, detects
// authorization failures, refreshes the session once and replays the request,
// and surfaces transport failures as typed errors with readable messages.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
)

// ErrSessionExpired is returned after a terminal authentication failure: a
// 401 that the single refresh-and-retry could not resolve. The token store
// is cleared before this error is returned.
var ErrSessionExpired = fmt.Errorf("session expired: %w", apperrors.ErrUnauthorized)

// SessionManager is the slice of the session manager the dispatcher needs.
type SessionManager interface {
	AuthHeader(ctx context.Context) map[string]string
	RefreshAccessToken(ctx context.Context) (string, bool)
	Clear(ctx context.Context)
}

// AuthFailureHook runs after a terminal authentication failure, before
// ErrSessionExpired is returned. The HTTP layer uses it to tell the client
// to navigate to the login page. Skipped for public (SkipAuth) calls.
type AuthFailureHook func(ctx context.Context)

// Options tunes a single dispatched request.
type Options struct {
	// SkipAuth omits the bearer header and the auth-failure hook. Used for
	// public endpoints.
	SkipAuth bool
	// NoRetry disables the refresh-and-retry on 401; the 401 is then
	// surfaced like any other non-OK response.
	NoRetry bool
	// Headers are merged over the default headers.
	Headers map[string]string
}

// HTTPError is a non-OK backend response with a best-effort human-readable
// message extracted from the body.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Result is a parsed backend response. JSON bodies stay raw for Decode;
// anything else is available through Text.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Decode unmarshals a JSON result into v. An empty result decodes to nothing.
func (r *Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.Wrap(err, "failed to decode response body")
	}
	return nil
}

// Text returns the response body as a string.
func (r *Result) Text() string {
	return string(r.Body)
}

// Client dispatches requests to the platform backend on behalf of one session.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	sessions      SessionManager
	onAuthFailure AuthFailureHook
	logger        *slog.Logger
}

// NewClient creates a dispatcher bound to the backend base URL and a session.
func NewClient(
	baseURL string,
	httpClient *http.Client,
	sessions SessionManager,
	onAuthFailure AuthFailureHook,
	logger *slog.Logger,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:       baseURL,
		httpClient:    httpClient,
		sessions:      sessions,
		onAuthFailure: onAuthFailure,
		logger:        logger,
	}
}

// Do dispatches one logical request. On a 401 it refreshes the session and
// replays the request exactly once; the retry budget is consumed, never
// recursive, so repeated 401s cannot loop.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	headers := c.buildHeaders(ctx, opts, "")

	resp, err := c.send(ctx, method, path, payload, headers)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.NoRetry {
		drain(resp)

		newToken, ok := c.sessions.RefreshAccessToken(ctx)
		if !ok {
			return nil, c.authFailure(ctx, opts)
		}

		headers = c.buildHeaders(ctx, opts, newToken)
		resp, err = c.send(ctx, method, path, payload, headers)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, c.authFailure(ctx, opts)
		}
	}

	return c.parse(resp)
}

// Get dispatches a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *Options) (*Result, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts)
}

// Post dispatches a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts *Options) (*Result, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts)
}

// Put dispatches a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts *Options) (*Result, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts)
}

// Patch dispatches a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts *Options) (*Result, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts)
}

// Delete dispatches a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts *Options) (*Result, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts)
}

// buildHeaders merges the default content type, the session credential and
// the caller's overrides. A non-empty freshToken replaces the stored
// credential after a refresh.
func (c *Client) buildHeaders(ctx context.Context, opts *Options, freshToken string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if !opts.SkipAuth {
		if freshToken != "" {
			headers["Authorization"] = "Bearer " + freshToken
		} else {
			for key, value := range c.sessions.AuthHeader(ctx) {
				headers[key] = value
			}
		}
	}

	for key, value := range opts.Headers {
		headers[key] = value
	}

	return headers
}

// send performs one HTTP round trip with a fresh body reader.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	payload []byte,
	headers map[string]string,
) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build request")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "request failed")
	}
	return resp, nil
}

// authFailure handles a terminal authentication failure: clears the token
// store, runs the redirect hook for non-public calls and returns
// ErrSessionExpired.
func (c *Client) authFailure(ctx context.Context, opts *Options) error {
	c.sessions.Clear(ctx)
	if !opts.SkipAuth && c.onAuthFailure != nil {
		c.onAuthFailure(ctx)
	}
	return ErrSessionExpired
}

// parse reads and interprets the response. JSON content parses as JSON, a
// 204 or absent content type yields an empty result, anything else is text.
// Non-OK responses become an HTTPError with an extracted message.
func (c *Client) parse(resp *http.Response) (*Result, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read response body")
	}

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp.StatusCode, body),
		}
	}

	if resp.StatusCode == http.StatusNoContent || contentType == "" {
		return &Result{StatusCode: resp.StatusCode, ContentType: contentType}, nil
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: contentType,
	}, nil
}

// extractErrorMessage builds a readable message from an error body: a JSON
// error/message field when present, raw text otherwise, and a generic
// "HTTP status N" when the body is empty or an HTML error page that would
// leak markup into the message.
func extractErrorMessage(statusCode int, body []byte) string {
	generic := fmt.Sprintf("HTTP status %d", statusCode)

	text := strings.TrimSpace(string(body))
	if text == "" {
		return generic
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	if looksLikeHTML(text) {
		return generic
	}

	return text
}

// looksLikeHTML detects an HTML error page by its prefix.
func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// drain discards and closes a response body so the connection can be reused
// before the request is replayed.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// encodeBody serializes a non-nil body to JSON.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode request body")
	}
	return payload, nil
}
