// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"errors"
	"net"

	"github.com/gleanwork/bitbucket-mcp/lib/bitbucket"
	"github.com/gleanwork/bitbucket-mcp/lib/mcp"
)

// classify maps a Bitbucket client error to a categorized tool error.
// The category drives the errorInfo field on the tool result, telling
// the agent whether to fix input, give up, or retry.
func classify(err error) error {
	var toolErr *mcp.ToolError
	if errors.As(err, &toolErr) {
		return err
	}

	category := mcp.CategoryInternal
	switch {
	case bitbucket.IsValidation(err):
		category = mcp.CategoryValidation
	case bitbucket.IsNotFound(err):
		category = mcp.CategoryNotFound
	case bitbucket.IsForbidden(err) || bitbucket.IsUnauthorized(err):
		category = mcp.CategoryForbidden
	case bitbucket.IsRateLimited(err):
		category = mcp.CategoryTransient
	case isNetworkError(err):
		category = mcp.CategoryTransient
	}
	return &mcp.ToolError{Category: category, Err: err}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
