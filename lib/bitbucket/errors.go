// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError represents a non-2xx response from the Bitbucket REST API.
// Bitbucket returns structured JSON error bodies of the form
// {"type": "error", "error": {"message": "...", "detail": "..."}}.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the error description from Bitbucket.
	Message string

	// Detail is the optional longer explanation.
	Detail string
}

func (err *APIError) Error() string {
	if err.Detail != "" {
		return fmt.Sprintf("bitbucket: HTTP %d: %s (%s)", err.StatusCode, err.Message, err.Detail)
	}
	return fmt.Sprintf("bitbucket: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a Bitbucket API 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsForbidden reports whether err is a Bitbucket API 403 response,
// typically missing OAuth consumer scopes.
func IsForbidden(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusForbidden
}

// IsUnauthorized reports whether err is a Bitbucket API 401 response.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports whether err is a Bitbucket API 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusTooManyRequests
}

// IsValidation reports whether err is a slug validation failure or a
// Bitbucket API 400 response.
func IsValidation(err error) bool {
	var validationError *ValidationError
	if errors.As(err, &validationError) {
		return true
	}
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusBadRequest
}

// ValidationError reports a client-side input validation failure.
// The request was never sent to Bitbucket.
type ValidationError struct {
	Field   string
	Message string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("bitbucket: invalid %s: %s", err.Field, err.Message)
}

// parseAPIError parses a Bitbucket API error from a status code and
// response body. Falls back to the raw body when the error envelope
// doesn't parse.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		apiError.Message = wireError.Error.Message
		apiError.Detail = wireError.Error.Detail
	} else {
		apiError.Message = string(body)
	}

	return apiError
}

// retryAfter computes the backoff duration from a rate-limited
// response's Retry-After header (seconds). Returns zero when the
// header is absent or unparseable.
func retryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
