// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"fmt"
	"strings"
)

// GetPullRequest retrieves a single pull request by ID.
func (client *Client) GetPullRequest(ctx context.Context, workspace, repoSlug string, id int) (*PullRequest, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return nil, err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return nil, err
	}

	var pullRequest PullRequest
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d", workspace, repoSlug, id)
	if err := client.get(ctx, path, &pullRequest); err != nil {
		return nil, fmt.Errorf("getting PR %s/%s#%d: %w", workspace, repoSlug, id, err)
	}
	return &pullRequest, nil
}

// GetPullRequestDiff fetches the unified diff for a pull request as
// raw text. Diffs larger than the configured budget are truncated with
// a trailing notice, since the full text is destined for an LLM
// context window.
func (client *Client) GetPullRequestDiff(ctx context.Context, workspace, repoSlug string, id int) (string, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return "", err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return "", err
	}

	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/diff", workspace, repoSlug, id)
	diff, err := client.getText(ctx, path)
	if err != nil {
		return "", fmt.Errorf("getting diff for PR %s/%s#%d: %w", workspace, repoSlug, id, err)
	}

	if len(diff) > client.maxDiffBytes {
		diff = diff[:client.maxDiffBytes] +
			"\n\n[DIFF TRUNCATED: too large for review. Consider reviewing files individually.]"
	}
	return diff, nil
}

// PullRequestSourceRef resolves the ref that identifies the PR's
// source revision for file content reads. The commit hash is preferred
// (immutable and unambiguous); the source branch name is the fallback
// when the API response omits the hash.
func (client *Client) PullRequestSourceRef(ctx context.Context, workspace, repoSlug string, id int) (string, error) {
	pullRequest, err := client.GetPullRequest(ctx, workspace, repoSlug, id)
	if err != nil {
		return "", err
	}
	if hash := pullRequest.Source.Commit.Hash; hash != "" {
		return hash, nil
	}
	if branch := pullRequest.Source.Branch.Name; branch != "" {
		return branch, nil
	}
	return "", fmt.Errorf("PR %s/%s#%d has no source commit or branch", workspace, repoSlug, id)
}

// UpdatePullRequest updates a pull request's description and,
// optionally, its title. Bitbucket's PUT endpoint requires a title, so
// when the caller leaves it empty the current title is fetched and
// preserved.
func (client *Client) UpdatePullRequest(ctx context.Context, workspace, repoSlug string, id int, description, title string) (*PullRequest, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return nil, err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		current, err := client.GetPullRequest(ctx, workspace, repoSlug, id)
		if err != nil {
			return nil, err
		}
		title = current.Title
	}

	requestBody := struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}{
		Title:       title,
		Description: description,
	}

	var updated PullRequest
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d", workspace, repoSlug, id)
	if err := client.put(ctx, path, requestBody, &updated); err != nil {
		return nil, fmt.Errorf("updating PR %s/%s#%d: %w", workspace, repoSlug, id, err)
	}
	return &updated, nil
}
