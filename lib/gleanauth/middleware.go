// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package gleanauth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/gleanwork/bitbucket-mcp/lib/bitbucket"
	"github.com/gleanwork/bitbucket-mcp/lib/clock"
	"github.com/gleanwork/bitbucket-mcp/lib/metrics"
)

// Auth modes. ModeNone bypasses all checks and exists for local
// development only.
const (
	ModeNone      = "none"
	ModeGleanOnly = "glean_only"
)

// tokenCacheTTL is how long a successfully validated token skips the
// Bitbucket round trip.
const tokenCacheTTL = 5 * time.Minute

// cacheSweepThreshold triggers eviction of expired cache entries.
const cacheSweepThreshold = 500

// minTokenLength rejects obviously malformed tokens before spending a
// Bitbucket API call on them.
const minTokenLength = 10

// validateTimeout bounds the Bitbucket /user call per request.
const validateTimeout = 10 * time.Second

// Config holds configuration for creating the Middleware.
type Config struct {
	// Mode is ModeNone or ModeGleanOnly.
	Mode string

	// GleanInstance is the Glean instance name (e.g. "support-lab").
	// Required in glean_only mode; it derives the allowed hosts
	// <instance>.glean.com and <instance>-be.glean.com.
	GleanInstance string

	// APIBase is the Bitbucket API root used for token validation.
	// Defaults to the public Bitbucket Cloud API.
	APIBase string

	// SkipPaths bypass the middleware. Defaults to /health, /sse,
	// and /metrics.
	SkipPaths []string

	// HTTPClient is used for token validation calls. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Metrics records auth decisions. Optional.
	Metrics *metrics.Metrics
}

// Middleware validates inbound requests before they reach the MCP
// handlers. Create with New, apply with Wrap.
type Middleware struct {
	mode          string
	gleanInstance string
	apiBase       string
	skipPaths     map[string]bool
	httpClient    *http.Client
	clock         clock.Clock
	logger        *slog.Logger
	metrics       *metrics.Metrics

	// validated maps a token digest to its cache expiry. Per-process
	// only: acceptable for single-instance deployments, where this
	// saves one Bitbucket round trip per tool call.
	mu        sync.Mutex
	validated map[string]time.Time
}

// New creates the middleware.
func New(config Config) *Middleware {
	skipPaths := config.SkipPaths
	if skipPaths == nil {
		skipPaths = []string{"/health", "/sse", "/metrics"}
	}
	skipSet := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skipSet[path] = true
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Middleware{
		mode:          config.Mode,
		gleanInstance: config.GleanInstance,
		apiBase:       config.APIBase,
		skipPaths:     skipSet,
		httpClient:    httpClient,
		clock:         clk,
		logger:        logger,
		metrics:       config.Metrics,
		validated:     make(map[string]time.Time),
	}
}

// Wrap returns a handler that runs the auth checks before next.
func (middleware *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// Health checks, the SSE handshake, metrics scrapes, and
		// CORS preflight pass through.
		if middleware.skipPaths[request.URL.Path] || request.Method == http.MethodOptions {
			next.ServeHTTP(writer, request)
			return
		}

		if middleware.mode == ModeNone {
			next.ServeHTTP(writer, request)
			return
		}

		authHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			middleware.logger.Warn("rejected request without Bearer token",
				"remote", request.RemoteAddr,
				"method", request.Method,
				"path", request.URL.Path,
			)
			middleware.reject(writer, http.StatusUnauthorized, "Bearer token required", "missing_token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if len(token) < minTokenLength {
			middleware.reject(writer, http.StatusUnauthorized, "Invalid token format", "missing_token")
			return
		}

		if !middleware.tokenValid(request.Context(), token) {
			middleware.logger.Warn("rejected request with invalid token",
				"remote", request.RemoteAddr,
				"path", request.URL.Path,
			)
			middleware.reject(writer, http.StatusForbidden, "Invalid or expired token", "invalid_token")
			return
		}

		if middleware.mode == ModeGleanOnly && !middleware.originAllowed(request) {
			middleware.logger.Warn("rejected request from disallowed origin",
				"remote", request.RemoteAddr,
				"origin", request.Header.Get("Origin"),
				"referer", request.Header.Get("Referer"),
				"user_agent", request.Header.Get("User-Agent"),
			)
			middleware.reject(writer, http.StatusForbidden, "Unauthorized origin", "bad_origin")
			return
		}

		if middleware.metrics != nil {
			middleware.metrics.ObserveAuthDecision("allowed")
		}
		next.ServeHTTP(writer, request)
	})
}

// tokenValid checks the validation cache, falling back to a live
// Bitbucket /user call. Successful validations are cached for five
// minutes keyed by a token digest (never the token itself).
func (middleware *Middleware) tokenValid(ctx context.Context, token string) bool {
	digest := tokenDigest(token)
	now := middleware.clock.Now()

	middleware.mu.Lock()
	expiry, cached := middleware.validated[digest]
	if cached && now.Before(expiry) {
		middleware.mu.Unlock()
		return true
	}
	if cached {
		delete(middleware.validated, digest)
	}
	middleware.mu.Unlock()

	validateCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	account, err := bitbucket.UserForToken(validateCtx, middleware.httpClient, middleware.apiBase, token)
	if err != nil {
		middleware.logger.Info("token validation failed", "error", err)
		return false
	}
	middleware.logger.Info("token validated", "bitbucket_user", account.DisplayName)

	middleware.mu.Lock()
	middleware.validated[digest] = now.Add(tokenCacheTTL)
	if len(middleware.validated) > cacheSweepThreshold {
		for key, entryExpiry := range middleware.validated {
			if !entryExpiry.After(now) {
				delete(middleware.validated, key)
			}
		}
	}
	middleware.mu.Unlock()
	return true
}

// originAllowed applies the origin heuristics. The Origin and Referer
// headers are hard checks when present; their absence is allowed
// because Glean's Go backend sends neither. The User-Agent is an
// advisory signal only.
func (middleware *Middleware) originAllowed(request *http.Request) bool {
	userAgent := request.Header.Get("User-Agent")
	if !strings.Contains(userAgent, "Go-http-client") {
		middleware.logger.Info("unexpected User-Agent observed (allowed)",
			"user_agent", userAgent,
			"remote", request.RemoteAddr,
			"path", request.URL.Path,
		)
	}

	if middleware.gleanInstance == "" {
		return true
	}
	// Both Glean hosts must be allowed: the Go backend executes
	// tools, the browser frontend saves and validates them in Agent
	// Builder.
	allowedHosts := []string{
		middleware.gleanInstance + "-be.glean.com",
		middleware.gleanInstance + ".glean.com",
	}

	for _, header := range []string{"Origin", "Referer"} {
		value := request.Header.Get(header)
		if value == "" {
			continue
		}
		matched := false
		for _, host := range allowedHosts {
			if strings.Contains(value, host) {
				matched = true
				break
			}
		}
		if !matched {
			middleware.logger.Warn("header host mismatch",
				"header", header,
				"value", value,
				"allowed", allowedHosts,
			)
			return false
		}
	}
	return true
}

func (middleware *Middleware) reject(writer http.ResponseWriter, status int, message, decision string) {
	if middleware.metrics != nil {
		middleware.metrics.ObserveAuthDecision(decision)
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"error": message})
}

// tokenDigest derives the cache key for a token. Only the digest is
// stored, so a heap dump of the cache leaks no credentials.
func tokenDigest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// CachedTokens returns the number of cached token validations.
func (middleware *Middleware) CachedTokens() int {
	middleware.mu.Lock()
	defer middleware.mu.Unlock()
	return len(middleware.validated)
}
