// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gleanwork/bitbucket-mcp/lib/bitbucket"
	"github.com/gleanwork/bitbucket-mcp/lib/mcp"
)

// Registry builds the MCP tool catalog backed by a Bitbucket client.
type Registry struct {
	client *bitbucket.Client
	logger *slog.Logger
}

// New creates the tool registry.
func New(client *bitbucket.Client, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{client: client, logger: logger}
}

// Catalog returns the full tool set for registration on the MCP
// server.
func (registry *Registry) Catalog() []mcp.Tool {
	return []mcp.Tool{
		{
			Name: "get_pull_request",
			Description: "Fetch full details of a Bitbucket pull request including title, " +
				"description, author, reviewers, source/destination branches, and state. " +
				"ALWAYS call this first when reviewing a PR: the response includes " +
				"'source_branch' and 'source_commit', which MUST be passed as the 'ref' " +
				"when calling get_file_content for any files changed in the PR.",
			InputSchema: prSchema(nil, nil),
			ReadOnly:    true,
			Handler:     registry.getPullRequest,
		},
		{
			Name: "get_pull_request_diff",
			Description: "Fetch the unified diff (code changes) of a Bitbucket pull request. " +
				"Returns the raw diff text showing all added, modified, and deleted lines. " +
				"Essential for code review analysis.",
			InputSchema: prSchema(nil, nil),
			ReadOnly:    true,
			Handler:     registry.getPullRequestDiff,
		},
		{
			Name: "get_file_content",
			Description: "Read the content of a file from a Bitbucket repository. Useful for " +
				"fetching style guides, linting configurations, CONTRIBUTING.md, or any file " +
				"changed in the PR. ALWAYS pass pr_id when reading files changed in a PR: the " +
				"server will automatically resolve the correct source commit as the ref. " +
				"Do NOT pass a ref parameter for PR files.",
			InputSchema: fileContentSchema(),
			ReadOnly:    true,
			Handler:     registry.getFileContent,
		},
		{
			Name: "list_pull_request_comments",
			Description: "List all existing comments on a Bitbucket pull request. Use this to " +
				"check what feedback has already been provided before adding new comments.",
			InputSchema: prSchema(nil, nil),
			ReadOnly:    true,
			Handler:     registry.listComments,
		},
		{
			Name: "add_pull_request_comment",
			Description: "Add a review comment to a Bitbucket pull request. Can be a general " +
				"comment or an inline comment on a specific file and line. Use this to post " +
				"code review feedback, style guide violations, or improvement suggestions.",
			InputSchema: prSchema(
				map[string]any{
					"content":     property("string", "Comment text in Markdown format"),
					"inline_path": property("string", "File path for inline comment (optional)"),
					"inline_line": property("integer", "Line number for inline comment (optional)"),
				},
				[]string{"content"},
			),
			Handler: registry.addComment,
		},
		{
			Name: "update_pull_request_description",
			Description: "Update the description (and optionally title) of a Bitbucket pull " +
				"request. Use this to enrich the PR with contextual information from the " +
				"codebase and documentation.",
			InputSchema: prSchema(
				map[string]any{
					"description": property("string", "New PR description in Markdown"),
					"title":       property("string", "New PR title (optional)"),
				},
				[]string{"description"},
			),
			Handler: registry.updateDescription,
		},
	}
}

// prArgs are the arguments shared by every PR-scoped tool.
type prArgs struct {
	Workspace string `json:"workspace"`
	RepoSlug  string `json:"repo_slug"`
	PRID      int    `json:"pr_id"`
}

func (args *prArgs) validate() error {
	if args.Workspace == "" {
		return mcp.Errorf(mcp.CategoryValidation, "workspace is required")
	}
	if args.RepoSlug == "" {
		return mcp.Errorf(mcp.CategoryValidation, "repo_slug is required")
	}
	if args.PRID <= 0 {
		return mcp.Errorf(mcp.CategoryValidation, "pr_id must be a positive integer")
	}
	return nil
}

// prSummary is the compact PR representation returned to the model.
// source_commit is called out in the get_pull_request description as
// the value to pass as ref to get_file_content.
type prSummary struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	State             string    `json:"state"`
	Author            string    `json:"author"`
	SourceBranch      string    `json:"source_branch"`
	SourceCommit      string    `json:"source_commit"`
	DestinationBranch string    `json:"destination_branch"`
	DestinationCommit string    `json:"destination_commit"`
	Reviewers         []string  `json:"reviewers"`
	CreatedOn         time.Time `json:"created_on"`
	UpdatedOn         time.Time `json:"updated_on"`
	CommentCount      int       `json:"comment_count"`
	Link              string    `json:"link"`
}

func (registry *Registry) getPullRequest(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args prArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if err := args.validate(); err != nil {
		return "", err
	}

	pullRequest, err := registry.client.GetPullRequest(ctx, args.Workspace, args.RepoSlug, args.PRID)
	if err != nil {
		return "", classify(err)
	}

	reviewers := make([]string, 0, len(pullRequest.Reviewers))
	for _, reviewer := range pullRequest.Reviewers {
		reviewers = append(reviewers, reviewer.DisplayName)
	}

	return marshalSummary(prSummary{
		Title:             pullRequest.Title,
		Description:       pullRequest.Description,
		State:             pullRequest.State,
		Author:            pullRequest.Author.DisplayName,
		SourceBranch:      pullRequest.Source.Branch.Name,
		SourceCommit:      pullRequest.Source.Commit.Hash,
		DestinationBranch: pullRequest.Destination.Branch.Name,
		DestinationCommit: pullRequest.Destination.Commit.Hash,
		Reviewers:         reviewers,
		CreatedOn:         pullRequest.CreatedOn,
		UpdatedOn:         pullRequest.UpdatedOn,
		CommentCount:      pullRequest.CommentCount,
		Link:              pullRequest.Links.HTML.Href,
	})
}

func (registry *Registry) getPullRequestDiff(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args prArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if err := args.validate(); err != nil {
		return "", err
	}

	diff, err := registry.client.GetPullRequestDiff(ctx, args.Workspace, args.RepoSlug, args.PRID)
	if err != nil {
		return "", classify(err)
	}
	return diff, nil
}

// placeholderRefs are ref values agents are known to pass literally
// instead of substituting the actual commit or branch: the field name
// itself, the documented example, or nothing at all. Any of these is
// replaced by the resolved PR source ref (or "main" without a PR).
var placeholderRefs = map[string]bool{
	"":              true,
	"main":          true,
	"source_commit": true,
	"source_branch": true,
	"commit_hash":   true,
	"branch_name":   true,
	"ref":           true,
}

type fileContentArgs struct {
	Workspace string `json:"workspace"`
	RepoSlug  string `json:"repo_slug"`
	FilePath  string `json:"file_path"`
	PRID      int    `json:"pr_id"`
	Ref       string `json:"ref"`
}

func (registry *Registry) getFileContent(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args fileContentArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if args.Workspace == "" {
		return "", mcp.Errorf(mcp.CategoryValidation, "workspace is required")
	}
	if args.RepoSlug == "" {
		return "", mcp.Errorf(mcp.CategoryValidation, "repo_slug is required")
	}
	if args.FilePath == "" {
		return "", mcp.Errorf(mcp.CategoryValidation, "file_path is required")
	}

	ref := args.Ref
	if args.PRID > 0 {
		resolved, err := registry.client.PullRequestSourceRef(ctx, args.Workspace, args.RepoSlug, args.PRID)
		switch {
		case err != nil:
			fallback := ref
			if fallback == "" {
				fallback = "main"
			}
			registry.logger.Warn("could not resolve ref from PR, falling back",
				"pr_id", args.PRID,
				"fallback_ref", fallback,
				"error", err,
			)
		case placeholderRefs[ref]:
			registry.logger.Info("overriding placeholder ref with PR source commit",
				"pr_id", args.PRID,
				"placeholder", ref,
				"resolved_ref", resolved,
			)
			ref = resolved
		default:
			registry.logger.Info("using PR source commit as ref",
				"pr_id", args.PRID,
				"agent_ref", ref,
				"resolved_ref", resolved,
			)
			ref = resolved
		}
	}
	if placeholderRefs[ref] {
		ref = "main"
	}

	content, err := registry.client.GetFileContent(ctx, args.Workspace, args.RepoSlug, args.FilePath, ref)
	if err != nil {
		return "", classify(err)
	}
	return content, nil
}

// commentSummary is the compact comment representation returned to
// the model.
type commentSummary struct {
	ID        int                       `json:"id"`
	Author    string                    `json:"author"`
	Content   string                    `json:"content"`
	CreatedOn time.Time                 `json:"created_on"`
	Inline    *bitbucket.InlineLocation `json:"inline"`
}

func (registry *Registry) listComments(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args prArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if err := args.validate(); err != nil {
		return "", err
	}

	comments, err := registry.client.ListPullRequestComments(ctx, args.Workspace, args.RepoSlug, args.PRID)
	if err != nil {
		return "", classify(err)
	}

	summaries := make([]commentSummary, 0, len(comments))
	for _, comment := range comments {
		summaries = append(summaries, commentSummary{
			ID:        comment.ID,
			Author:    comment.User.DisplayName,
			Content:   comment.Content.Raw,
			CreatedOn: comment.CreatedOn,
			Inline:    comment.Inline,
		})
	}
	return marshalSummary(summaries)
}

type addCommentArgs struct {
	prArgs
	Content    string `json:"content"`
	InlinePath string `json:"inline_path"`
	InlineLine int    `json:"inline_line"`
}

func (registry *Registry) addComment(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args addCommentArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if err := args.validate(); err != nil {
		return "", err
	}
	if args.Content == "" {
		return "", mcp.Errorf(mcp.CategoryValidation, "content is required")
	}

	comment, err := registry.client.AddPullRequestComment(ctx, args.Workspace, args.RepoSlug, args.PRID,
		args.Content, args.InlinePath, args.InlineLine)
	if err != nil {
		return "", classify(err)
	}
	return fmt.Sprintf("Comment posted successfully. ID: %d", comment.ID), nil
}

type updateDescriptionArgs struct {
	prArgs
	Description string `json:"description"`
	Title       string `json:"title"`
}

func (registry *Registry) updateDescription(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args updateDescriptionArgs
	if err := decodeArgs(arguments, &args); err != nil {
		return "", err
	}
	if err := args.validate(); err != nil {
		return "", err
	}
	if args.Description == "" {
		return "", mcp.Errorf(mcp.CategoryValidation, "description is required")
	}

	if _, err := registry.client.UpdatePullRequest(ctx, args.Workspace, args.RepoSlug, args.PRID,
		args.Description, args.Title); err != nil {
		return "", classify(err)
	}
	return "PR description updated successfully.", nil
}

// decodeArgs unmarshals tool arguments, mapping decode failures to
// validation errors.
func decodeArgs(arguments json.RawMessage, target any) error {
	if len(arguments) == 0 {
		return mcp.Errorf(mcp.CategoryValidation, "arguments are required")
	}
	if err := json.Unmarshal(arguments, target); err != nil {
		return mcp.Errorf(mcp.CategoryValidation, "decoding arguments: %v", err)
	}
	return nil
}

// marshalSummary renders a summary object as indented JSON for the
// model.
func marshalSummary(summary any) (string, error) {
	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", mcp.Errorf(mcp.CategoryInternal, "encoding summary: %v", err)
	}
	return string(encoded), nil
}
