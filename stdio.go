package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/evtaxi/api"
	"github.com/wricardo/mcp-training/evtaxi/transport/mcp"
	"github.com/wricardo/mcp-training/evtaxi/transport/websocket"
)

// apiAvailable reports whether an API server answers the health check at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the API on a random loopback port and returns its
// base URL and a shutdown function.
func startInternalAPI(opts serverOptions) (string, func(), error) {
	gameService, sessionManager, err := initializeServices(opts)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	httpServer := &http.Server{
		Handler: api.NewServer(gameService, hub),
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("internal HTTP server error", "err", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
		hub.Stop()
		if err := sessionManager.SaveAllSessions(); err != nil {
			log.Warn("failed to save sessions on shutdown", "err", err)
		}
	}

	return "http://" + listener.Addr().String(), shutdown, nil
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured port; if none answers it starts an internal
// one on a random loopback port.
func runStdioMCP(ctx context.Context, opts serverOptions) error {
	baseURL := fmt.Sprintf("http://%s", opts.addr())
	log.Info("checking for external API server", "url", baseURL)

	if apiAvailable(ctx, baseURL) {
		log.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalAPI(opts)
		if err != nil {
			return err
		}
		defer shutdown()

		baseURL = internalURL
		log.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
