// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import "regexp"

// slugPattern matches safe Bitbucket workspace and repository slugs.
// Anything else (slashes, "..", URL metacharacters) is rejected before
// it reaches a request path.
var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateSlug checks that value is a safe Bitbucket slug. The field
// name appears in the error so tool callers see which argument was
// malformed.
func validateSlug(value, field string) error {
	if !slugPattern.MatchString(value) {
		return &ValidationError{
			Field:   field,
			Message: "only alphanumeric characters, dots, hyphens, and underscores are allowed",
		}
	}
	return nil
}
