// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPageIterator_FollowsNext(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repositories/ws/repo/pullrequests/1/comments", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		switch request.URL.Query().Get("page") {
		case "":
			fmt.Fprintf(writer, `{"values":[{"id":1},{"id":2}],"next":"%s/repositories/ws/repo/pullrequests/1/comments?page=2"}`, server.URL)
		case "2":
			fmt.Fprintf(writer, `{"values":[{"id":3}],"next":"%s/repositories/ws/repo/pullrequests/1/comments?page=3"}`, server.URL)
		case "3":
			fmt.Fprint(writer, `{"values":[{"id":4}]}`)
		default:
			t.Errorf("unexpected page %q", request.URL.Query().Get("page"))
			writer.WriteHeader(http.StatusNotFound)
		}
	})
	server = httptest.NewTLSServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	iterator := list[Comment](client, "/repositories/ws/repo/pullrequests/1/comments")

	ctx := context.Background()
	var ids []int
	for {
		page, err := iterator.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if page == nil {
			break
		}
		for _, comment := range page {
			ids = append(ids, comment.ID)
		}
	}

	want := []int{1, 2, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	// Exhausted iterator stays exhausted.
	page, err := iterator.Next(ctx)
	if err != nil || page != nil {
		t.Errorf("Next after exhaustion = %v, %v, want nil, nil", page, err)
	}
}

func TestPageIterator_Collect(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/items", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		if request.URL.Query().Get("page") == "2" {
			fmt.Fprint(writer, `{"values":[{"id":30}]}`)
			return
		}
		fmt.Fprintf(writer, `{"values":[{"id":10},{"id":20}],"next":"%s/items?page=2"}`, server.URL)
	})
	server = httptest.NewTLSServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	all, err := list[Comment](client, "/items").Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Collect returned %d items, want 3", len(all))
	}
	if all[0].ID != 10 || all[1].ID != 20 || all[2].ID != 30 {
		t.Errorf("unexpected items: %+v", all)
	}
}

func TestPageIterator_EmptyFirstPage(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"values":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	all, err := list[Comment](client, "/items").Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("Collect returned %d items, want 0", len(all))
	}
}
