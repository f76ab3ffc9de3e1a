// Command skyguessr starts the SkyGuessr game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// The server binds to loopback by default: it is the local bridge between the
// round engine and the renderer running on the same machine.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/skyguessr/api"
	"github.com/wricardo/skyguessr/game/catalog"
	"github.com/wricardo/skyguessr/game/service"
	"github.com/wricardo/skyguessr/game/session"
	"github.com/wricardo/skyguessr/transport/mcp"
	"github.com/wricardo/skyguessr/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "SkyGuessr Server"
)

// appConfig is the resolved command line and environment configuration
type appConfig struct {
	Host           string
	Port           int
	ContentDir     string
	DataDir        string
	StaticDir      string
	AllowedOrigins []string
	SessionTTL     time.Duration
	Debug          bool
}

// Addr is the HTTP listen address
func (c appConfig) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// application holds the wired services shared by every mode
type application struct {
	service  service.GameService
	sessions *session.Manager
	catalogs *catalog.Manager
	hub      *websocket.Hub
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

// newCommand builds the CLI: the root command runs the HTTP server, stdio-mcp
// runs the MCP stdio transport.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "skyguessr",
		Usage:   "Guess where panoramas were taken",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "127.0.0.1",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "content-dir",
				Value:   "content",
				Usage:   "Directory containing location_data.json, map_data.json and the images",
				Sources: cli.EnvVars("CONTENT_DIR"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Usage:   "Directory for session records and preferences",
				Sources: cli.EnvVars("DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   "static",
				Usage:   "Directory containing the renderer page",
				Sources: cli.EnvVars("STATIC_DIR"),
			},
			&cli.StringSliceFlag{
				Name:    "allowed-origins",
				Usage:   "Origins allowed to call the API from a browser (\"*\" for any)",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Unload sessions idle for longer than this",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioCommand,
			},
		},
	}
}

// setupLogging configures the global logger. Logs go to stderr so the stdio
// MCP transport keeps stdout to itself.
func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

func configFromCommand(cmd *cli.Command) appConfig {
	return appConfig{
		Host:           cmd.String("host"),
		Port:           int(cmd.Int("port")),
		ContentDir:     cmd.String("content-dir"),
		DataDir:        cmd.String("data-dir"),
		StaticDir:      cmd.String("static-dir"),
		AllowedOrigins: cmd.StringSlice("allowed-origins"),
		SessionTTL:     cmd.Duration("session-ttl"),
		Debug:          cmd.Bool("debug"),
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	log.Info().Str("version", Version).Str("mode", "server").Msg(AppName)

	app, err := initializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupRoutine(ctx, app.sessions, cfg.SessionTTL)

	return runHTTPServer(ctx, app, cfg)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	log.Info().Str("version", Version).Str("mode", "stdio-mcp").Msg(AppName)

	app, err := initializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.shutdown()

	return runStdioMCPWithInternalServer(ctx, app, cfg)
}

// initializeServices wires the catalog, session and preference stores into
// the game service, and routes round events to the WebSocket hub.
func initializeServices(cfg appConfig) (*application, error) {
	catalogs, err := catalog.NewManager(cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(filepath.Join(cfg.DataDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	hub := websocket.NewHub(cfg.AllowedOrigins...)
	go hub.Run()

	sessions := session.NewManagerWithPersistence(catalogs, persistence)
	sessions.SetNotifier(hub.BroadcastEvent)

	if err := sessions.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	prefs := session.NewPreferencesStore(filepath.Join(cfg.DataDir, "preferences.json"))

	return &application{
		service:  service.NewGameService(sessions, catalogs, prefs),
		sessions: sessions,
		catalogs: catalogs,
		hub:      hub,
	}, nil
}

// shutdown saves every session and stops all timers and connections
func (a *application) shutdown() {
	if err := a.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions")
	}
	a.sessions.CloseAll()
	a.hub.Stop()
}

// newAPIServer builds the REST API for app
func newAPIServer(app *application, cfg appConfig) *api.Server {
	return api.NewServer(app.service, app.hub, api.Options{
		ContentDir:     cfg.ContentDir,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
	})
}

// mcpHTTPHandler serves single JSON-RPC messages posted to /mcp
func mcpHTTPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRootHandler mounts the API and the /mcp endpoint on one mux
func newRootHandler(apiServer *api.Server, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer.Handler())
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))
	return mainRouter
}

// runHTTPServer serves until ctx is cancelled, then shuts down gracefully.
func runHTTPServer(ctx context.Context, app *application, cfg appConfig) error {
	addr := cfg.Addr()
	apiServer := newAPIServer(app, cfg)
	mcpClient := mcp.NewClient("http://" + addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newRootHandler(apiServer, mcpClient),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("HTTP server listening on %s", addr)
		log.Info().Msgf("Game UI: http://%s/", addr)
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	log.Info().Msg("Server stopped")
	return nil
}

// sessionCleanupRoutine periodically unloads sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info().Int("count", removed).Msg("cleaned up idle sessions")
			}
		}
	}
}

// externalServerAvailable reports whether a SkyGuessr API already answers at baseURL
func externalServerAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an API
// already listening on the configured address; otherwise it starts an internal
// one on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, app *application, cfg appConfig) error {
	baseURL := "http://" + cfg.Addr()
	log.Info().Msgf("Checking for external API server at %s...", baseURL)

	if externalServerAvailable(baseURL) {
		log.Info().Msgf("External API server found at %s, using it for MCP", baseURL)
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		baseURL = "http://" + listener.Addr().String()
		log.Info().Msgf("Starting internal HTTP server on %s for MCP stdio", listener.Addr())

		httpServer := &http.Server{Handler: newAPIServer(app, cfg).Handler()}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
