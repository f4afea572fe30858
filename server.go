package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/evtaxi/api"
	"github.com/wricardo/mcp-training/evtaxi/game/config"
	"github.com/wricardo/mcp-training/evtaxi/game/service"
	"github.com/wricardo/mcp-training/evtaxi/game/session"
	"github.com/wricardo/mcp-training/evtaxi/transport/mcp"
	"github.com/wricardo/mcp-training/evtaxi/transport/websocket"
)

const cleanupInterval = time.Hour

type serverOptions struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	SessionTTL  time.Duration
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func serverOptionsFrom(cmd *cli.Command) serverOptions {
	return serverOptions{
		Host:        cmd.String("host"),
		Port:        cmd.Int("port"),
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		SessionTTL:  cmd.Duration("session-ttl"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

func (o serverOptions) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// initializeServices wires the config manager, the persistent session
// manager and the game service, and reloads snapshots from disk.
func initializeServices(opts serverOptions) (service.GameService, *session.Manager, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "err", err)
	}

	return service.NewGameService(sessionManager, configManager), sessionManager, nil
}

// sessionCleanupRoutine periodically unloads sessions that have not been
// accessed within ttl. Their snapshots stay on disk.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// newHandler mounts the API at the root and the MCP JSON-RPC endpoint at /mcp
func newHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mux
}

// runHTTPServer serves the REST API, WebSocket hub and /mcp endpoint until
// SIGINT/SIGTERM, then shuts down and flushes session snapshots.
func runHTTPServer(ctx context.Context, opts serverOptions) error {
	gameService, sessionManager, err := initializeServices(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	addr := opts.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	handler := newHandler(api.NewServer(gameService, hub), mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go sessionCleanupRoutine(ctx, sessionManager, cleanupInterval, opts.SessionTTL)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveNgrok(ctx, opts, handler); err != nil {
				log.Error("ngrok tunnel failed", "err", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		stop()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()

	if err := sessionManager.SaveAllSessions(); err != nil {
		log.Warn("failed to save sessions on shutdown", "err", err)
	}

	log.Info("server stopped")
	return nil
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, opts serverOptions, handler http.Handler) error {
	if opts.NgrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Info("using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		return fmt.Errorf("failed to start ngrok tunnel: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established",
		"url", url,
		"api", url+"/api",
		"ws", url+"/ws?session=<session_id>",
		"mcp", url+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		return err
	}
	log.Info("ngrok tunnel closed")
	return nil
}
