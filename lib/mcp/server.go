// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/gleanwork/bitbucket-mcp/lib/clock"
	"github.com/gleanwork/bitbucket-mcp/lib/metrics"
)

// Tool is a named operation exposed through tools/list and invocable
// through tools/call.
type Tool struct {
	// Name is the tool's wire name (e.g., "get_pull_request").
	Name string

	// Description tells the model what the tool does and when to
	// use it.
	Description string

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema any

	// ReadOnly marks tools that never mutate upstream state. It is
	// surfaced to clients through the readOnlyHint annotation.
	ReadOnly bool

	// Handler executes the tool. The returned string becomes the
	// text content of the result; a non-nil error produces an
	// isError result with errorInfo derived from the error's
	// category.
	Handler func(ctx context.Context, arguments json.RawMessage) (string, error)
}

// Config holds configuration for creating a Server.
type Config struct {
	// Name identifies the server in initialize responses.
	Name string

	// Version is the server version reported to clients.
	Version string

	// Tools is the tool catalog. Names must be unique.
	Tools []Tool

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Metrics records tool invocation counts. Optional.
	Metrics *metrics.Metrics
}

// Server dispatches JSON-RPC 2.0 messages for the MCP methods
// initialize, ping, tools/list, and tools/call. It is transport
// agnostic: the SSE handler feeds it the body of each POSTed message.
type Server struct {
	name        string
	version     string
	tools       []Tool
	toolsByName map[string]*Tool
	logger      *slog.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics
}

// NewServer creates an MCP server serving the given tool catalog.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	server := &Server{
		name:    config.Name,
		version: config.Version,
		tools:   config.Tools,
		logger:  logger,
		clock:   clk,
		metrics: config.Metrics,
	}
	server.toolsByName = make(map[string]*Tool, len(server.tools))
	for i := range server.tools {
		server.toolsByName[server.tools[i].Name] = &server.tools[i]
	}
	return server
}

// ConnState is per-connection protocol state. Each SSE session owns
// one; the server requires initialize before tools methods.
type ConnState struct {
	initialized atomic.Bool
}

// HandleMessage processes a single JSON-RPC message and returns the
// marshaled response, or nil when the message is a notification and
// no response is due.
func (server *Server) HandleMessage(ctx context.Context, state *ConnState, body []byte) []byte {
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return marshalError(json.RawMessage("null"), codeParseError, "parse error: "+err.Error())
	}

	if req.JSONRPC != "2.0" {
		if req.isNotification() {
			return nil
		}
		return marshalError(req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
	}

	// Notifications have no ID and receive no response.
	if req.isNotification() {
		return nil
	}

	return server.dispatch(ctx, state, &req)
}

func (server *Server) dispatch(ctx context.Context, state *ConnState, req *request) []byte {
	switch req.Method {
	case "initialize":
		return server.handleInitialize(state, req)
	case "ping":
		return marshalResult(req.ID, map[string]any{})
	case "tools/list":
		if !state.initialized.Load() {
			return marshalError(req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return server.handleToolsList(req)
	case "tools/call":
		if !state.initialized.Load() {
			return marshalError(req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return server.handleToolsCall(ctx, req)
	default:
		return marshalError(req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (server *Server) handleInitialize(state *ConnState, req *request) []byte {
	if len(req.Params) > 0 {
		var params initializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return marshalError(req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
		}
		server.logger.Info("client initialized",
			"client", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
			"requested_protocol", params.ProtocolVersion,
		)
	}

	// The MCP specification says the server responds with its own
	// protocol version and the client decides whether it can
	// proceed. Clients requesting a different version are not
	// rejected.
	state.initialized.Store(true)

	return marshalResult(req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    server.name,
			Version: server.version,
		},
	})
}

func (server *Server) handleToolsList(req *request) []byte {
	descriptions := make([]toolDescription, 0, len(server.tools))
	for i := range server.tools {
		tool := &server.tools[i]
		description := toolDescription{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
		if tool.ReadOnly {
			readOnly := true
			description.Annotations = &toolAnnotations{ReadOnlyHint: &readOnly}
		}
		descriptions = append(descriptions, description)
	}
	return marshalResult(req.ID, toolsListResult{Tools: descriptions})
}

func (server *Server) handleToolsCall(ctx context.Context, req *request) []byte {
	if len(req.Params) == 0 {
		return marshalError(req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return marshalError(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	tool, ok := server.toolsByName[params.Name]
	if !ok {
		return marshalError(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	started := server.clock.Now()
	output, runErr := tool.Handler(ctx, params.Arguments)
	elapsed := server.clock.Now().Sub(started)

	result := buildToolResult(output, runErr)

	if runErr != nil {
		server.logger.Warn("tool call failed",
			"tool", params.Name,
			"category", result.ErrorInfo.Category,
			"duration", elapsed,
			"error", runErr,
		)
	} else {
		server.logger.Info("tool call succeeded",
			"tool", params.Name,
			"duration", elapsed,
		)
	}
	if server.metrics != nil {
		server.metrics.ObserveToolCall(params.Name, toolOutcome(result), elapsed)
	}

	return marshalResult(req.ID, result)
}

// buildToolResult assembles a toolsCallResult from handler output and
// an optional error. Handler failures become isError results, never
// JSON-RPC errors: a JSON-RPC error would abort the client's request
// loop, while an isError result gives the model text to react to.
func buildToolResult(output string, runErr error) toolsCallResult {
	result := toolsCallResult{}
	if output != "" {
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: output,
		})
	}
	if runErr != nil {
		result.IsError = true
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: runErr.Error(),
		})
		result.ErrorInfo = classifyError(runErr)
	}
	// MCP requires at least one content block in the result.
	if len(result.Content) == 0 {
		result.Content = []contentBlock{{Type: "text", Text: ""}}
	}
	return result
}

func toolOutcome(result toolsCallResult) string {
	if !result.IsError {
		return "success"
	}
	return result.ErrorInfo.Category
}

func marshalResult(id json.RawMessage, result any) []byte {
	encoded, err := json.Marshal(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		return marshalError(id, codeInternalError, "encoding response: "+err.Error())
	}
	return encoded
}

func marshalError(id json.RawMessage, code int, message string) []byte {
	encoded, _ := json.Marshal(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
	return encoded
}
