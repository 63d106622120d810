// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus instrumentation for the MCP
// server: tool call counts and latencies, SSE session gauge, and
// inbound auth decisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors, registered on a
// private registry so tests can create recorders without colliding on
// the global default.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	sseSessions      prometheus.Gauge
	authDecisions    *prometheus.CounterVec
}

// New creates a Metrics with all collectors registered, alongside the
// standard Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	toolCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "Tool invocations, grouped by tool name and outcome (success or error category)",
		}, []string{"tool", "outcome"})

	toolCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_tool_call_duration_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"})

	sseSessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcp_sse_sessions",
			Help: "Currently open SSE sessions",
		})

	authDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_auth_decisions_total",
			Help: "Inbound auth middleware decisions, grouped by result (allowed, missing_token, invalid_token, bad_origin)",
		}, []string{"result"})

	registry.MustRegister(
		toolCalls,
		toolCallDuration,
		sseSessions,
		authDecisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:         registry,
		toolCalls:        toolCalls,
		toolCallDuration: toolCallDuration,
		sseSessions:      sseSessions,
		authDecisions:    authDecisions,
	}
}

// ObserveToolCall records one tool invocation. Outcome is "success"
// or the error category from the tool result.
func (m *Metrics) ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// SessionOpened increments the SSE session gauge.
func (m *Metrics) SessionOpened() { m.sseSessions.Inc() }

// SessionClosed decrements the SSE session gauge.
func (m *Metrics) SessionClosed() { m.sseSessions.Dec() }

// ObserveAuthDecision records one inbound auth middleware decision.
func (m *Metrics) ObserveAuthDecision(result string) {
	m.authDecisions.WithLabelValues(result).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
