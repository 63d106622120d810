// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import "time"

// Account is a Bitbucket user reference. Appears as PR authors,
// reviewers, and comment authors.
type Account struct {
	DisplayName string `json:"display_name"`
	UUID        string `json:"uuid"`
	Nickname    string `json:"nickname"`
}

// Branch is a branch reference on a pull request endpoint.
type Branch struct {
	Name string `json:"name"`
}

// CommitRef is a commit reference on a pull request endpoint.
type CommitRef struct {
	Hash string `json:"hash"`
}

// Endpoint is one side of a pull request (source or destination):
// the branch and the commit it pointed at.
type Endpoint struct {
	Branch Branch    `json:"branch"`
	Commit CommitRef `json:"commit"`
}

// Links carries the hypermedia links Bitbucket attaches to resources.
// Only the HTML link is used here.
type Links struct {
	HTML Link `json:"html"`
}

// Link is a single hypermedia link.
type Link struct {
	Href string `json:"href"`
}

// PullRequest is a Bitbucket pull request.
type PullRequest struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	State        string    `json:"state"` // "OPEN", "MERGED", "DECLINED", "SUPERSEDED"
	Author       Account   `json:"author"`
	Source       Endpoint  `json:"source"`
	Destination  Endpoint  `json:"destination"`
	Reviewers    []Account `json:"reviewers"`
	CommentCount int       `json:"comment_count"`
	CreatedOn    time.Time `json:"created_on"`
	UpdatedOn    time.Time `json:"updated_on"`
	Links        Links     `json:"links"`
}

// CommentContent is the body of a comment. Raw is the Markdown source.
type CommentContent struct {
	Raw string `json:"raw"`
}

// InlineLocation anchors a comment to a file and line in the diff.
// To is the line in the new version of the file.
type InlineLocation struct {
	Path string `json:"path"`
	To   int    `json:"to,omitempty"`
}

// Comment is a pull request comment, optionally inline.
type Comment struct {
	ID        int             `json:"id"`
	User      Account         `json:"user"`
	Content   CommentContent  `json:"content"`
	Inline    *InlineLocation `json:"inline,omitempty"`
	Deleted   bool            `json:"deleted"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
}
