// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Command bitbucket-mcp serves Bitbucket pull request review tools to
// MCP clients over SSE. It is designed to run as a single container
// behind a Glean agent: configuration comes from the environment (or an
// optional YAML file), health and metrics are exposed for the
// orchestrator, and SIGTERM drains in-flight tool calls before exit.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/gleanwork/bitbucket-mcp/lib/bitbucket"
	"github.com/gleanwork/bitbucket-mcp/lib/config"
	"github.com/gleanwork/bitbucket-mcp/lib/gleanauth"
	"github.com/gleanwork/bitbucket-mcp/lib/mcp"
	"github.com/gleanwork/bitbucket-mcp/lib/metrics"
	"github.com/gleanwork/bitbucket-mcp/lib/process"
	"github.com/gleanwork/bitbucket-mcp/lib/service"
	"github.com/gleanwork/bitbucket-mcp/lib/tools"
	"github.com/gleanwork/bitbucket-mcp/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
		healthcheck bool
	)
	pflag.StringVar(&configPath, "config", "", "path to a YAML config file (overrides BITBUCKET_MCP_CONFIG)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.BoolVar(&healthcheck, "healthcheck", false, "probe the local /health endpoint and exit")
	pflag.Parse()

	if showVersion {
		version.Print("bitbucket-mcp")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// The healthcheck mode only needs the port; it runs inside the
	// container image, which has no other HTTP client.
	if healthcheck {
		return probeHealth(cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()

	client, err := bitbucket.NewClient(bitbucket.Config{
		APIBase:      cfg.Bitbucket.APIBase,
		AuthURL:      cfg.Bitbucket.AuthURL,
		ClientID:     cfg.Bitbucket.ClientID,
		ClientSecret: cfg.Bitbucket.ClientSecret,
		MaxDiffBytes: cfg.Limits.MaxDiffBytes,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	registry := tools.New(client, logger)
	catalog := registry.Catalog()

	mcpServer := mcp.NewServer(mcp.Config{
		Name:    cfg.Server.Name,
		Version: version.Short(),
		Tools:   catalog,
		Logger:  logger,
		Metrics: recorder,
	})
	sseHandler := mcp.NewSSEHandler(mcp.SSEConfig{
		Server:  mcpServer,
		Logger:  logger,
		Metrics: recorder,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/sse", sseHandler.ServeSSE)
	mux.HandleFunc("/messages/", sseHandler.ServeMessages)

	auth := gleanauth.New(gleanauth.Config{
		Mode:          string(cfg.Auth.Mode),
		GleanInstance: cfg.Auth.GleanInstance,
		APIBase:       cfg.Bitbucket.APIBase,
		Logger:        logger,
		Metrics:       recorder,
	})
	handler := corsHandler(cfg.AllowedOriginList(), auth.Wrap(mux))

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.ListenAddress(),
		Handler: handler,
		Logger:  logger,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return httpServer.Serve(groupCtx)
	})

	select {
	case <-httpServer.Ready():
		logger.Info("mcp server ready",
			"address", httpServer.Addr().String(),
			"server_name", cfg.Server.Name,
			"auth_mode", cfg.Auth.Mode,
			"tools", len(catalog),
		)
	case <-groupCtx.Done():
	}

	return group.Wait()
}

// loadConfig resolves the configuration: an explicit --config path wins
// over the BITBUCKET_MCP_CONFIG environment variable.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// probeHealth implements the --healthcheck flag: a single GET against
// the local health endpoint, exit status reporting liveness. Used by
// the container HEALTHCHECK so the image needs no curl.
func probeHealth(port int) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

func handleHealth(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	writer.Write([]byte(`{"status":"healthy"}` + "\n"))
}
