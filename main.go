// Command evtaxi hosts and drives EV taxi grid world episodes.
//
// Modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket
//     observers and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API
//     if none is available
//  3. "drive" plays one episode with a random driver and prints every frame
//  4. "play" lets a human drive an episode in the terminal
//  5. "validate" checks every configuration in the config directory
//
// Flags can also be set from the environment or a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/evtaxi/game/config"
	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/tui"
	"github.com/wricardo/mcp-training/evtaxi/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "EV Taxi Grid World"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "evtaxi",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing episode configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory for session snapshots",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Unload sessions not accessed for this long",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: setupLogging,
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server backed by an external or internal HTTP API",
				Action:  stdioAction,
			},
			{
				Name:  "drive",
				Usage: "Play one episode with a random driver",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config ID (default: the directory default)"},
					&cli.Int64Flag{Name: "seed", Usage: "Seed for layout and driver (0 = time seeded)"},
					&cli.DurationFlag{Name: "delay", Value: 100 * time.Millisecond, Usage: "Pause between frames"},
					&cli.IntFlag{Name: "max-steps", Value: 200, Usage: "Stop after this many steps (0 = until done)"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not render frames"},
					&cli.BoolFlag{Name: "color", Usage: "Render coloured frames"},
				},
				Action: driveAction,
			},
			{
				Name:  "play",
				Usage: "Drive an episode yourself in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config ID (default: the directory default)"},
				},
				Action: playAction,
			},
			{
				Name:   "validate",
				Usage:  "Validate every configuration in the config directory",
				Action: validateAction,
			},
		},
	}
}

// setupLogging installs the process logger
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "evtaxi",
	})
	if cmd.Bool("debug") {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	}
	log.SetDefault(logger)
	return ctx, nil
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := serverOptionsFrom(cmd)
	log.Info("starting", "app", AppName, "version", Version, "mode", "server")
	return runHTTPServer(ctx, opts)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := serverOptionsFrom(cmd)
	log.Info("starting", "app", AppName, "version", Version, "mode", "stdio-mcp")
	return runStdioMCP(ctx, opts)
}

func driveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}

	opts := driveOptions{
		Seed:     cmd.Int64("seed"),
		Delay:    cmd.Duration("delay"),
		MaxSteps: cmd.Int("max-steps"),
		Quiet:    cmd.Bool("quiet"),
		Styled:   cmd.Bool("color"),
	}
	_, err = runDrive(ctx, cfg, cmd.Root().Writer, opts)
	return err
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg, 0, nil)
	if err != nil {
		return err
	}
	defer env.Close()
	return tui.Run(env)
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	results, err := validate.Dir(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	if !validate.Report(cmd.Root().Writer, results) {
		return cli.Exit("", 1)
	}
	return nil
}

// loadConfig resolves a config ID through the config manager, falling back
// to the directory default when id is empty.
func loadConfig(dir, id string) (*engine.EnvConfig, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = manager.DefaultID()
	}
	cfg, err := manager.LoadConfig(id)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded config", "config", id, "grid", cfg.GridSize)
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal("exiting", "err", err)
	}
}
