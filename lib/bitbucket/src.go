// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"fmt"
	"strings"
)

// GetFileContent fetches the raw content of a file at a given ref
// (branch name or commit hash). The ref and file path are not
// slug-validated: branch names routinely contain slashes
// (feature/login) and so do file paths. Leading slashes and
// parent-directory segments in the file path are rejected.
func (client *Client) GetFileContent(ctx context.Context, workspace, repoSlug, filePath, ref string) (string, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return "", err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return "", err
	}
	if err := validateFilePath(filePath); err != nil {
		return "", err
	}

	path := fmt.Sprintf("/repositories/%s/%s/src/%s/%s", workspace, repoSlug, ref, filePath)
	content, err := client.getText(ctx, path)
	if err != nil {
		return "", fmt.Errorf("getting %s at %s from %s/%s: %w", filePath, ref, workspace, repoSlug, err)
	}
	return content, nil
}

// validateFilePath rejects absolute paths and parent-directory
// traversal in repository file paths.
func validateFilePath(filePath string) error {
	if filePath == "" {
		return &ValidationError{Field: "file_path", Message: "file path must not be empty"}
	}
	if strings.HasPrefix(filePath, "/") {
		return &ValidationError{Field: "file_path", Message: "file path must be relative"}
	}
	for _, segment := range strings.Split(filePath, "/") {
		if segment == ".." {
			return &ValidationError{Field: "file_path", Message: "file path must not contain '..'"}
		}
	}
	return nil
}
