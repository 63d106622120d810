// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gleanwork/bitbucket-mcp/lib/clock"
)

// sseFrame is one server-sent event (or comment) read off the stream.
type sseFrame struct {
	event   string
	data    string
	comment string
}

// readFrame reads lines until the blank frame terminator.
func readFrame(t *testing.T, reader *bufio.Reader) sseFrame {
	t.Helper()
	var frame sseFrame
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading SSE frame: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return frame
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			frame.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.data = strings.TrimPrefix(line, "data: ")
		case strings.HasPrefix(line, ":"):
			frame.comment = strings.TrimSpace(strings.TrimPrefix(line, ":"))
		}
	}
}

// newSSETestStack wires a Server and SSEHandler into an
// httptest.Server with the production URL layout.
func newSSETestStack(t *testing.T, clk clock.Clock) (*httptest.Server, *SSEHandler) {
	t.Helper()
	handler := NewSSEHandler(SSEConfig{
		Server: newTestServer(),
		Clock:  clk,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", handler.ServeSSE)
	mux.HandleFunc("/messages/", handler.ServeMessages)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, handler
}

// openStream opens the SSE stream and returns the reader plus the
// per-session message URL from the endpoint event.
func openStream(t *testing.T, ctx context.Context, server *httptest.Server) (*bufio.Reader, string, func()) {
	t.Helper()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sse", nil)
	if err != nil {
		t.Fatalf("creating SSE request: %v", err)
	}
	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatalf("opening SSE stream: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("SSE stream status = %d", response.StatusCode)
	}
	if got := response.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	reader := bufio.NewReader(response.Body)
	frame := readFrame(t, reader)
	if frame.event != "endpoint" {
		t.Fatalf("first event = %q, want endpoint", frame.event)
	}
	if !strings.HasPrefix(frame.data, "/messages/?session_id=") {
		t.Fatalf("endpoint data = %q", frame.data)
	}
	return reader, server.URL + frame.data, func() { response.Body.Close() }
}

func TestSSE_InitializeRoundTrip(t *testing.T) {
	server, _ := newSSETestStack(t, clock.Real())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, messageURL, closeStream := openStream(t, ctx, server)
	defer closeStream()

	post, err := server.Client().Post(messageURL, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test"}}}`))
	if err != nil {
		t.Fatalf("POST message: %v", err)
	}
	body, _ := io.ReadAll(post.Body)
	post.Body.Close()
	if post.StatusCode != http.StatusAccepted {
		t.Fatalf("POST status = %d, body %s", post.StatusCode, body)
	}

	// The JSON-RPC response arrives on the stream, not the POST.
	frame := readFrame(t, reader)
	if frame.event != "message" {
		t.Fatalf("event = %q, want message", frame.event)
	}
	var decoded testResponse
	if err := json.Unmarshal([]byte(frame.data), &decoded); err != nil {
		t.Fatalf("decoding stream message %q: %v", frame.data, err)
	}
	if decoded.Error != nil {
		t.Fatalf("initialize error: %+v", decoded.Error)
	}
	if !strings.Contains(string(decoded.Result), protocolVersion) {
		t.Errorf("result missing protocol version: %s", decoded.Result)
	}
}

func TestSSE_ToolCallOverStream(t *testing.T) {
	server, _ := newSSETestStack(t, clock.Real())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, messageURL, closeStream := openStream(t, ctx, server)
	defer closeStream()

	messages := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"over sse"}}}`,
	}
	for _, message := range messages {
		post, err := server.Client().Post(messageURL, "application/json", strings.NewReader(message))
		if err != nil {
			t.Fatalf("POST message: %v", err)
		}
		post.Body.Close()
		if post.StatusCode != http.StatusAccepted {
			t.Fatalf("POST status = %d", post.StatusCode)
		}
		// Wait for each response before sending the next POST so the
		// stream order is deterministic.
		frame := readFrame(t, reader)
		if frame.event != "message" {
			t.Fatalf("event = %q, want message", frame.event)
		}
		if message == messages[1] {
			var decoded testResponse
			if err := json.Unmarshal([]byte(frame.data), &decoded); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			var result testToolResult
			if err := json.Unmarshal(decoded.Result, &result); err != nil {
				t.Fatalf("decoding tool result: %v", err)
			}
			if len(result.Content) != 1 || result.Content[0].Text != "over sse" {
				t.Errorf("content = %+v", result.Content)
			}
		}
	}
}

func TestSSE_UnknownSession(t *testing.T) {
	server, _ := newSSETestStack(t, clock.Real())

	post, err := server.Client().Post(server.URL+"/messages/?session_id=deadbeef", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", post.StatusCode)
	}
}

func TestSSE_MissingSessionID(t *testing.T) {
	server, _ := newSSETestStack(t, clock.Real())

	post, err := server.Client().Post(server.URL+"/messages/", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", post.StatusCode)
	}
}

func TestSSE_MethodNotAllowed(t *testing.T) {
	server, _ := newSSETestStack(t, clock.Real())

	post, err := server.Client().Post(server.URL+"/sse", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /sse: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /sse status = %d, want 405", post.StatusCode)
	}

	get, err := server.Client().Get(server.URL + "/messages/?session_id=x")
	if err != nil {
		t.Fatalf("GET /messages: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /messages status = %d, want 405", get.StatusCode)
	}
}

func TestSSE_KeepAlive(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	server, _ := newSSETestStack(t, fakeClock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, _, closeStream := openStream(t, ctx, server)
	defer closeStream()

	// The stream writer registers its keep-alive ticker after the
	// endpoint event; advance past the interval to trigger a tick.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(defaultKeepAliveInterval + time.Second)

	frame := readFrame(t, reader)
	if frame.comment != "keep-alive" {
		t.Errorf("frame = %+v, want keep-alive comment", frame)
	}
}

func TestSSE_SessionCleanup(t *testing.T) {
	server, handler := newSSETestStack(t, clock.Real())
	ctx, cancel := context.WithCancel(context.Background())

	_, _, closeStream := openStream(t, ctx, server)

	if got := handler.SessionCount(); got != 1 {
		t.Fatalf("SessionCount = %d, want 1", got)
	}

	// Disconnect the client; the handler should unregister the
	// session once the request context ends.
	cancel()
	closeStream()

	deadline := time.Now().Add(5 * time.Second)
	for handler.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not cleaned up, count = %d", handler.SessionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
