// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gleanwork/bitbucket-mcp/lib/netutil"
)

// UserForToken validates an arbitrary bearer token by calling the
// /user endpoint with it. Returns the account the token belongs to, or
// an *APIError when Bitbucket rejects the token.
//
// This is a package function rather than a Client method because it
// authenticates with the caller-supplied token, not the client's own
// credentials. The inbound auth middleware uses it to check tokens
// presented by MCP clients.
func UserForToken(ctx context.Context, httpClient *http.Client, apiBase, token string) (*Account, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	apiBase = strings.TrimRight(apiBase, "/")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: creating user request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: user request: %w", err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("bitbucket: reading user response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, parseAPIError(response.StatusCode, body)
	}

	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("bitbucket: decoding user response: %w", err)
	}
	return &account, nil
}
