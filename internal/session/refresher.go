package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
)

// backendRefresher exchanges refresh tokens against the platform backend.
// It deliberately bypasses the authenticated dispatcher: the refresh call
// carries no bearer header and must never trigger the dispatcher's own
// refresh-and-retry logic.
type backendRefresher struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendRefresher creates a Refresher bound to the backend base URL.
func NewBackendRefresher(baseURL string, httpClient *http.Client) Refresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &backendRefresher{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// refreshRequest is the wire format of the refresh exchange.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the wire format of a successful refresh exchange.
// The refresh token is only present when the backend rotated it.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Refresh performs one POST /auth/refresh call. Any non-2xx response is a
// refresh failure.
func (r *backendRefresher) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode refresh request")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/auth/refresh",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "refresh request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Wrap(
			apperrors.ErrUnauthorized,
			fmt.Sprintf("refresh rejected with HTTP status %d", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read refresh response")
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode refresh response")
	}
	if parsed.AccessToken == "" {
		return nil, apperrors.New("refresh response missing access token")
	}

	return &TokenPair{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}, nil
}
