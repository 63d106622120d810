// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gleanwork/bitbucket-mcp/lib/clock"
	"github.com/gleanwork/bitbucket-mcp/lib/netutil"
)

// defaultAPIBase is the root URL for the Bitbucket Cloud REST API 2.0.
const defaultAPIBase = "https://api.bitbucket.org/2.0"

// defaultAuthURL is the root URL for Bitbucket's OAuth 2.0 endpoints.
const defaultAuthURL = "https://bitbucket.org/site/oauth2"

// defaultMaxDiffBytes truncates PR diffs beyond this size. Diffs are
// fed to an LLM for review; an unbounded diff would blow the model's
// context window long before it troubled this process.
const defaultMaxDiffBytes = 100_000

// defaultRequestTimeout bounds every outbound request when the caller
// does not supply its own HTTP client.
const defaultRequestTimeout = 30 * time.Second

// Config holds configuration for creating a Bitbucket API Client.
//
// Exactly one authentication mode must be configured:
//   - Client credentials: set ClientID and ClientSecret
//   - Token authentication: set Token
type Config struct {
	// APIBase is the root URL for API requests. Defaults to
	// "https://api.bitbucket.org/2.0". Must use HTTPS.
	APIBase string

	// AuthURL is the root URL for OAuth token requests. Defaults to
	// "https://bitbucket.org/site/oauth2". Must use HTTPS.
	AuthURL string

	// ClientID is the OAuth consumer key. Required for client
	// credentials auth.
	ClientID string

	// ClientSecret is the OAuth consumer secret. Required for client
	// credentials auth.
	ClientSecret string

	// Token is a static access token. Mutually exclusive with the
	// client credentials fields.
	Token string

	// MaxDiffBytes bounds GetPullRequestDiff output. Defaults to
	// 100000 bytes.
	MaxDiffBytes int

	// HTTPClient is used for all HTTP requests. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed Bitbucket Cloud API client with automatic
// authentication, rate-limit backoff, pagination, and structured
// error handling.
type Client struct {
	apiBase      string
	httpClient   *http.Client
	auth         authenticator
	maxDiffBytes int
	clock        clock.Clock
	logger       *slog.Logger
}

// NewClient creates a Bitbucket API client from the given
// configuration. Returns an error if the configuration is invalid
// (bad auth config, non-HTTPS URL).
func NewClient(config Config) (*Client, error) {
	apiBase := config.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	apiBase = strings.TrimRight(apiBase, "/")

	authURL := config.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	authURL = strings.TrimRight(authURL, "/")

	if !strings.HasPrefix(apiBase, "https://") {
		return nil, fmt.Errorf("bitbucket: API client requires HTTPS (got %q)", apiBase)
	}
	if !strings.HasPrefix(authURL, "https://") {
		return nil, fmt.Errorf("bitbucket: auth URL requires HTTPS (got %q)", authURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		// http.DefaultClient has no timeout; a silent upstream would
		// block a tool call forever.
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxDiffBytes := config.MaxDiffBytes
	if maxDiffBytes <= 0 {
		maxDiffBytes = defaultMaxDiffBytes
	}

	// Validate auth configuration: exactly one mode.
	hasCredentials := config.ClientID != "" || config.ClientSecret != ""
	hasToken := config.Token != ""

	if hasCredentials && hasToken {
		return nil, fmt.Errorf("bitbucket: cannot configure both client credentials and token auth")
	}
	if !hasCredentials && !hasToken {
		return nil, fmt.Errorf("bitbucket: no authentication configured (set ClientID+ClientSecret or Token)")
	}

	var auth authenticator
	if hasCredentials {
		if config.ClientID == "" {
			return nil, fmt.Errorf("bitbucket: ClientID is required for client credentials auth")
		}
		if config.ClientSecret == "" {
			return nil, fmt.Errorf("bitbucket: ClientSecret is required for client credentials auth")
		}
		auth = newClientCredentialsAuth(config.ClientID, config.ClientSecret, authURL+"/access_token", httpClient, clk, logger)
	} else {
		auth = newTokenAuth(config.Token)
	}

	return &Client{
		apiBase:      apiBase,
		httpClient:   httpClient,
		auth:         auth,
		maxDiffBytes: maxDiffBytes,
		clock:        clk,
		logger:       logger,
	}, nil
}

// do executes an authenticated Bitbucket API request. The path is
// relative to the API base (e.g., "/repositories/ws/repo"). For
// non-GET requests, the body is JSON-encoded from requestBody (pass
// nil for no body).
//
// Returns the response body as raw bytes. On non-2xx responses,
// returns an *APIError. Rate-limited requests (429) are retried once
// after the Retry-After backoff.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	return client.doURL(ctx, method, client.apiBase+path, requestBody, "application/json", false)
}

// doURL is the internal request implementation. It takes a full URL
// (pagination follows absolute "next" URLs) and an Accept header, with
// a retry flag to prevent infinite recursion on persistent rate
// limiting.
func (client *Client) doURL(ctx context.Context, method, url string, requestBody any, accept string, isRetry bool) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("bitbucket: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: creating request: %w", err)
	}

	authHeader, err := client.auth.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: authentication: %w", err)
	}
	request.Header.Set("Authorization", authHeader)
	request.Header.Set("Accept", accept)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: %s %s: %w", method, url, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return body, nil
	}

	// Rate limit: back off once, then retry. Bitbucket signals the
	// backoff in Retry-After (seconds).
	if response.StatusCode == http.StatusTooManyRequests && !isRetry {
		if backoff := retryAfter(response.Header); backoff > 0 {
			client.logger.Info("rate limited, backing off",
				"duration", backoff,
				"method", method,
				"url", url,
			)
			select {
			case <-client.clock.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return client.doURL(ctx, method, url, requestBody, accept, true)
		}
	}

	return nil, parseAPIError(response.StatusCode, body)
}

// get is a convenience method for GET requests that return a single
// JSON object. Decodes the response into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// getText fetches a raw text resource (diffs, file contents). The
// Accept header asks for plain text; Bitbucket serves these endpoints
// through redirects, which the HTTP client follows.
func (client *Client) getText(ctx context.Context, path string) (string, error) {
	body, err := client.doURL(ctx, http.MethodGet, client.apiBase+path, nil, "text/plain", false)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// post is a convenience method for POST requests that return a JSON
// object. Decodes the response into result when result is non-nil.
func (client *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// put is a convenience method for PUT requests that return a JSON
// object. Decodes the response into result when result is non-nil.
func (client *Client) put(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPut, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}
