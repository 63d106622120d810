// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies a tool error for the errorInfo extension.
type Category string

const (
	// CategoryValidation marks bad input: fix the arguments and retry.
	CategoryValidation Category = "validation"

	// CategoryNotFound marks a missing resource.
	CategoryNotFound Category = "not_found"

	// CategoryForbidden marks an authorization failure, typically
	// missing OAuth scopes.
	CategoryForbidden Category = "forbidden"

	// CategoryTransient marks errors where the same call might
	// succeed on retry (rate limits, timeouts, upstream outages).
	CategoryTransient Category = "transient"

	// CategoryInternal marks everything else.
	CategoryInternal Category = "internal"
)

// ToolError is an error with a category attached, produced by tool
// handlers. The category flows into the errorInfo field of the tool
// result so agents can decide whether to retry, fix input, or give up.
type ToolError struct {
	Category Category
	Err      error
}

func (err *ToolError) Error() string { return err.Err.Error() }

func (err *ToolError) Unwrap() error { return err.Err }

// Errorf creates a categorized tool error with fmt.Errorf semantics.
func Errorf(category Category, format string, args ...any) *ToolError {
	return &ToolError{Category: category, Err: fmt.Errorf(format, args...)}
}

// classifyError extracts structured error metadata from a tool
// handler error. Context cancellation and deadline errors are
// transient even when the handler didn't categorize them.
func classifyError(err error) *errorInfo {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category == CategoryTransient,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorInfo{Category: string(CategoryTransient), Retryable: true}
	}
	return &errorInfo{Category: string(CategoryInternal), Retryable: false}
}
