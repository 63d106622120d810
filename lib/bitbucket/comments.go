// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"fmt"
)

// ListPullRequestComments returns all comments on a pull request,
// following pagination to the end.
func (client *Client) ListPullRequestComments(ctx context.Context, workspace, repoSlug string, id int) ([]Comment, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return nil, err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/comments", workspace, repoSlug, id)
	comments, err := list[Comment](client, path).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing comments on PR %s/%s#%d: %w", workspace, repoSlug, id, err)
	}
	return comments, nil
}

// AddPullRequestComment posts a comment on a pull request. When
// inlinePath is non-empty the comment is anchored to that file, with
// inlineLine selecting the line in the new version of the file
// (0 leaves the comment file-level).
func (client *Client) AddPullRequestComment(ctx context.Context, workspace, repoSlug string, id int, content, inlinePath string, inlineLine int) (*Comment, error) {
	if err := validateSlug(workspace, "workspace"); err != nil {
		return nil, err
	}
	if err := validateSlug(repoSlug, "repo_slug"); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "comment content must not be empty"}
	}

	requestBody := struct {
		Content CommentContent  `json:"content"`
		Inline  *InlineLocation `json:"inline,omitempty"`
	}{
		Content: CommentContent{Raw: content},
	}
	if inlinePath != "" {
		requestBody.Inline = &InlineLocation{Path: inlinePath, To: inlineLine}
	}

	var created Comment
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/comments", workspace, repoSlug, id)
	if err := client.post(ctx, path, requestBody, &created); err != nil {
		return nil, fmt.Errorf("adding comment to PR %s/%s#%d: %w", workspace, repoSlug, id, err)
	}
	return &created, nil
}
