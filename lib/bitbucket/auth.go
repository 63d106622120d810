// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gleanwork/bitbucket-mcp/lib/clock"
	"github.com/gleanwork/bitbucket-mcp/lib/netutil"
)

// authenticator provides Authorization header values for Bitbucket API
// requests. Implementations handle token lifecycle (static for access
// tokens, auto-renewing for OAuth client credentials).
type authenticator interface {
	// AuthorizationHeader returns a valid Authorization header value
	// (e.g., "Bearer xxx"). For client credentials auth, this may
	// trigger token renewal if the current token is near expiry.
	AuthorizationHeader(ctx context.Context) (string, error)
}

// tokenRenewalMargin is how far before expiry the access token is
// renewed. Renewing 60 seconds early avoids races where a token
// expires mid-request.
const tokenRenewalMargin = 60 * time.Second

// defaultTokenLifetime is assumed when the token response omits
// expires_in. Bitbucket access tokens live two hours.
const defaultTokenLifetime = 7200 * time.Second

// --- Static token authentication ---

// tokenAuth is a static Bearer token authenticator for workspace or
// repository access tokens.
type tokenAuth struct {
	header string
}

func newTokenAuth(token string) *tokenAuth {
	return &tokenAuth{header: "Bearer " + token}
}

func (auth *tokenAuth) AuthorizationHeader(_ context.Context) (string, error) {
	return auth.header, nil
}

// --- OAuth 2.0 client credentials authentication ---

// clientCredentialsAuth authenticates via the OAuth 2.0 client
// credentials grant. It exchanges the consumer key and secret for
// short-lived access tokens and renews them before expiry, preferring
// the refresh token grant when Bitbucket issued one.
type clientCredentialsAuth struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	clock        clock.Clock
	logger       *slog.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newClientCredentialsAuth(clientID, clientSecret, tokenURL string, httpClient *http.Client, clk clock.Clock, logger *slog.Logger) *clientCredentialsAuth {
	return &clientCredentialsAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		clock:        clk,
		logger:       logger,
	}
}

func (auth *clientCredentialsAuth) AuthorizationHeader(ctx context.Context) (string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()

	// Return the cached token while it remains valid with margin.
	if auth.accessToken != "" && auth.clock.Now().Before(auth.expiresAt.Add(-tokenRenewalMargin)) {
		return "Bearer " + auth.accessToken, nil
	}

	// Prefer the refresh grant when a refresh token is available; fall
	// back to a fresh client credentials grant if the refresh fails
	// (refresh tokens can be revoked server-side).
	if auth.refreshToken != "" {
		if err := auth.requestToken(ctx, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {auth.refreshToken},
		}); err == nil {
			return "Bearer " + auth.accessToken, nil
		} else {
			auth.logger.Warn("token refresh failed, requesting new token", "error", err)
		}
	}

	if err := auth.requestToken(ctx, url.Values{
		"grant_type": {"client_credentials"},
	}); err != nil {
		return "", err
	}
	return "Bearer " + auth.accessToken, nil
}

// requestToken performs a token endpoint request and stores the
// resulting token state. Must be called with auth.mu held.
func (auth *clientCredentialsAuth) requestToken(ctx context.Context, form url.Values) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("bitbucket: creating token request: %w", err)
	}
	request.SetBasicAuth(auth.clientID, auth.clientSecret)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, err := auth.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("bitbucket: token request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body := netutil.ErrorBody(response.Body)
		return fmt.Errorf("bitbucket: token request returned HTTP %d: %s", response.StatusCode, body)
	}

	var result struct {
		AccessToken  string  `json:"access_token"`
		ExpiresIn    float64 `json:"expires_in"`
		RefreshToken string  `json:"refresh_token"`
		Scopes       string  `json:"scopes"`
	}
	if err := netutil.DecodeResponse(response.Body, &result); err != nil {
		return fmt.Errorf("bitbucket: decoding token response: %w", err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("bitbucket: token response contained no access token")
	}

	lifetime := defaultTokenLifetime
	if result.ExpiresIn > 0 {
		lifetime = time.Duration(result.ExpiresIn * float64(time.Second))
	}

	auth.accessToken = result.AccessToken
	auth.expiresAt = auth.clock.Now().Add(lifetime)
	if result.RefreshToken != "" {
		auth.refreshToken = result.RefreshToken
	}

	auth.logger.Debug("access token obtained",
		"grant_type", form.Get("grant_type"),
		"expires_at", auth.expiresAt,
		"scopes", result.Scopes,
	)
	return nil
}
