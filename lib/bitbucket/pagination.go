// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"encoding/json"
	"net/http"
)

// PageIterator lazily fetches pages of results from a paginated
// Bitbucket API endpoint. Bitbucket embeds the next page URL in the
// response body ({"values": [...], "next": "https://..."}), unlike
// forges that use the Link header.
//
// Each call to Next fetches one page and returns its items; it returns
// nil, nil when all pages have been consumed. The iterator is not safe
// for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	done    bool
}

// paginatedBody is the Bitbucket list response envelope.
type paginatedBody[T any] struct {
	Values []T    `json:"values"`
	Next   string `json:"next"`
}

// list creates a PageIterator for a paginated GET endpoint.
func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.apiBase + path,
	}
}

// Next fetches the next page of results. Returns nil, nil when no more
// pages are available. Each page fetch is subject to authentication
// and rate limiting, same as any other API call.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	body, err := iterator.client.doURL(ctx, http.MethodGet, iterator.nextURL, nil, "application/json", false)
	if err != nil {
		return nil, err
	}

	var page paginatedBody[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}

	iterator.nextURL = page.Next
	if iterator.nextURL == "" {
		iterator.done = true
	}

	return page.Values, nil
}

// Collect fetches all remaining pages and returns all items
// concatenated. Convenience for callers that need the full result set.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}
