// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gleanwork/bitbucket-mcp/lib/clock"
	"github.com/gleanwork/bitbucket-mcp/lib/metrics"
)

// defaultKeepAliveInterval is how often an idle SSE stream emits a
// comment line. Proxies between Glean and this server close
// connections that stay silent too long.
const defaultKeepAliveInterval = 15 * time.Second

// maxMessageBytes bounds the body of a POSTed JSON-RPC message.
const maxMessageBytes = 1 << 20

// SSEConfig holds configuration for creating an SSEHandler.
type SSEConfig struct {
	// Server dispatches the JSON-RPC messages. Required.
	Server *Server

	// MessagesPath is the path prefix clients POST messages to. The
	// endpoint event appends "?session_id=<id>". Defaults to
	// "/messages/".
	MessagesPath string

	// KeepAliveInterval is how often idle streams emit a keep-alive
	// comment. Defaults to 15 seconds.
	KeepAliveInterval time.Duration

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Metrics tracks open sessions. Optional.
	Metrics *metrics.Metrics
}

// SSEHandler implements the MCP SSE transport: a long-lived event
// stream per session plus a message endpoint for inbound JSON-RPC.
type SSEHandler struct {
	server            *Server
	messagesPath      string
	keepAliveInterval time.Duration
	logger            *slog.Logger
	clock             clock.Clock
	metrics           *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one connected SSE client. Outbound responses are queued
// on a buffered channel consumed by the stream writer goroutine.
type session struct {
	id       string
	state    ConnState
	outbound chan []byte
	done     chan struct{}
}

// NewSSEHandler creates the SSE transport for the given server.
func NewSSEHandler(config SSEConfig) *SSEHandler {
	messagesPath := config.MessagesPath
	if messagesPath == "" {
		messagesPath = "/messages/"
	}
	keepAlive := config.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = defaultKeepAliveInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &SSEHandler{
		server:            config.Server,
		messagesPath:      messagesPath,
		keepAliveInterval: keepAlive,
		logger:            logger,
		clock:             clk,
		metrics:           config.Metrics,
		sessions:          make(map[string]*session),
	}
}

// ServeSSE handles GET /sse: it opens the event stream, announces the
// session's message endpoint, and writes queued responses until the
// client disconnects.
func (handler *SSEHandler) ServeSSE(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := writer.(http.Flusher)
	if !ok {
		http.Error(writer, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sess := &session{
		id:       newSessionID(),
		outbound: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	handler.register(sess)
	defer handler.unregister(sess)

	handler.logger.Info("SSE session opened",
		"session_id", sess.id,
		"remote", request.RemoteAddr,
	)

	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)

	// The endpoint event tells the client where to POST messages for
	// this session.
	fmt.Fprintf(writer, "event: endpoint\ndata: %s?session_id=%s\n\n", handler.messagesPath, sess.id)
	flusher.Flush()

	ticker := handler.clock.NewTicker(handler.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-request.Context().Done():
			handler.logger.Info("SSE session closed", "session_id", sess.id)
			return
		case message := <-sess.outbound:
			fmt.Fprintf(writer, "event: message\ndata: %s\n\n", message)
			flusher.Flush()
		case <-ticker.C:
			// Comment line: ignored by clients, keeps proxies from
			// timing out the idle stream.
			fmt.Fprint(writer, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// ServeMessages handles POST /messages/: it dispatches one JSON-RPC
// message for the session named in the query string. The HTTP
// response is an immediate 202; the JSON-RPC response is delivered
// over the session's event stream.
func (handler *SSEHandler) ServeMessages(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := request.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(writer, "session_id query parameter required", http.StatusBadRequest)
		return
	}
	sess := handler.lookup(sessionID)
	if sess == nil {
		http.Error(writer, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, maxMessageBytes+1))
	if err != nil {
		http.Error(writer, "reading request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxMessageBytes {
		http.Error(writer, "message too large", http.StatusRequestEntityTooLarge)
		return
	}

	// Dispatch off the POST's lifetime: the 202 returns immediately
	// and the tool keeps running even if the POST connection drops.
	// The session's done channel bounds the work instead.
	ctx := context.WithoutCancel(request.Context())
	go handler.dispatch(ctx, sess, body)

	writer.WriteHeader(http.StatusAccepted)
	writer.Write([]byte("Accepted"))
}

func (handler *SSEHandler) dispatch(ctx context.Context, sess *session, body []byte) {
	response := handler.server.HandleMessage(ctx, &sess.state, body)
	if response == nil {
		return
	}
	select {
	case sess.outbound <- response:
	case <-sess.done:
		handler.logger.Warn("dropping response for closed session", "session_id", sess.id)
	}
}

// SessionCount returns the number of open SSE sessions.
func (handler *SSEHandler) SessionCount() int {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return len(handler.sessions)
}

func (handler *SSEHandler) register(sess *session) {
	handler.mu.Lock()
	handler.sessions[sess.id] = sess
	handler.mu.Unlock()
	if handler.metrics != nil {
		handler.metrics.SessionOpened()
	}
}

func (handler *SSEHandler) unregister(sess *session) {
	handler.mu.Lock()
	delete(handler.sessions, sess.id)
	handler.mu.Unlock()
	close(sess.done)
	if handler.metrics != nil {
		handler.metrics.SessionClosed()
	}
}

func (handler *SSEHandler) lookup(sessionID string) *session {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return handler.sessions[sessionID]
}

// newSessionID returns a 128-bit random hex session identifier.
func newSessionID() string {
	var buffer [16]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		panic("reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(buffer[:])
}
