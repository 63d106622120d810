// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"slices"
)

// corsHandler applies CORS headers ahead of authentication. Allowed
// origins come from configuration; an empty list means any origin. Only
// GET and POST are advertised, matching the SSE transport (GET /sse,
// POST /messages/).
func corsHandler(allowedOrigins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		origin := request.Header.Get("Origin")
		if origin != "" {
			if allowed := corsOrigin(allowedOrigins, origin); allowed != "" {
				writer.Header().Set("Access-Control-Allow-Origin", allowed)
				writer.Header().Add("Vary", "Origin")
			}
		}
		if request.Method == http.MethodOptions {
			writer.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			writer.Header().Set("Access-Control-Allow-Headers", "*")
			writer.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// corsOrigin returns the Access-Control-Allow-Origin value for the
// request origin, or "" when the origin is not allowed.
func corsOrigin(allowedOrigins []string, origin string) string {
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		return "*"
	}
	if slices.Contains(allowedOrigins, origin) {
		return origin
	}
	return ""
}
