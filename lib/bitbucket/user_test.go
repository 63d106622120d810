// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package bitbucket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUserForToken(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/user" {
			t.Errorf("unexpected path %q", request.URL.Path)
		}
		if got := request.Header.Get("Authorization"); got != "Bearer caller-token" {
			t.Errorf("Authorization = %q", got)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"display_name": "Token Owner", "uuid": "{1234}"}`))
	}))
	defer server.Close()

	account, err := UserForToken(context.Background(), server.Client(), server.URL, "caller-token")
	if err != nil {
		t.Fatalf("UserForToken: %v", err)
	}
	if account.DisplayName != "Token Owner" {
		t.Errorf("DisplayName = %q", account.DisplayName)
	}
	if account.UUID != "{1234}" {
		t.Errorf("UUID = %q", account.UUID)
	}
}

func TestUserForToken_Rejected(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"type":"error","error":{"message":"Token is invalid or not supported for this endpoint."}}`))
	}))
	defer server.Close()

	_, err := UserForToken(context.Background(), server.Client(), server.URL, "bad-token")
	if !IsUnauthorized(err) {
		t.Errorf("expected IsUnauthorized, got: %v", err)
	}
}
