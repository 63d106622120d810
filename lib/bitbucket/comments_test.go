// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListPullRequestComments(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/repositories/ws/repo/pullrequests/3/comments" {
			t.Errorf("unexpected path %q", request.URL.Path)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{
			"values": [
				{"id": 1, "user": {"display_name": "Reviewer"}, "content": {"raw": "Looks good"}},
				{"id": 2, "content": {"raw": "Nit: typo"}, "inline": {"path": "main.go", "to": 12}},
				{"id": 3, "deleted": true, "content": {"raw": ""}}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	comments, err := client.ListPullRequestComments(context.Background(), "ws", "repo", 3)
	if err != nil {
		t.Fatalf("ListPullRequestComments: %v", err)
	}

	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3", len(comments))
	}
	if comments[0].User.DisplayName != "Reviewer" {
		t.Errorf("comment 0 user = %q", comments[0].User.DisplayName)
	}
	if comments[1].Inline == nil || comments[1].Inline.Path != "main.go" || comments[1].Inline.To != 12 {
		t.Errorf("comment 1 inline = %+v", comments[1].Inline)
	}
	if !comments[2].Deleted {
		t.Error("comment 2 should be marked deleted")
	}
}

func TestAddPullRequestComment(t *testing.T) {
	var receivedBody struct {
		Content CommentContent  `json:"content"`
		Inline  *InlineLocation `json:"inline"`
	}
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", request.Method)
		}
		json.NewDecoder(request.Body).Decode(&receivedBody)
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"id": 99, "content": {"raw": "A comment"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	created, err := client.AddPullRequestComment(context.Background(), "ws", "repo", 3, "A comment", "", 0)
	if err != nil {
		t.Fatalf("AddPullRequestComment: %v", err)
	}

	if created.ID != 99 {
		t.Errorf("created ID = %d, want 99", created.ID)
	}
	if receivedBody.Content.Raw != "A comment" {
		t.Errorf("sent content = %q", receivedBody.Content.Raw)
	}
	if receivedBody.Inline != nil {
		t.Errorf("file-level comment should not carry inline location, got %+v", receivedBody.Inline)
	}
}

func TestAddPullRequestComment_Inline(t *testing.T) {
	var receivedBody struct {
		Inline *InlineLocation `json:"inline"`
	}
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		json.NewDecoder(request.Body).Decode(&receivedBody)
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"id": 100}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.AddPullRequestComment(context.Background(), "ws", "repo", 3, "Inline note", "pkg/server.go", 42)
	if err != nil {
		t.Fatalf("AddPullRequestComment: %v", err)
	}

	if receivedBody.Inline == nil {
		t.Fatal("inline location not sent")
	}
	if receivedBody.Inline.Path != "pkg/server.go" || receivedBody.Inline.To != 42 {
		t.Errorf("inline = %+v, want pkg/server.go:42", receivedBody.Inline)
	}
}

func TestAddPullRequestComment_EmptyContent(t *testing.T) {
	client, err := NewClient(Config{Token: "test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.AddPullRequestComment(context.Background(), "ws", "repo", 3, "", "", 0)
	if !IsValidation(err) {
		t.Errorf("expected validation error for empty content, got: %v", err)
	}
}
