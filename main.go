// Command cloudcover runs the cloud cover simulator.
//
// It supports three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     replay and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none
//     is available
//  3. "simulate" runs one simulation and prints the result as JSON
//
// Flags control host/port, preset directory, debug logging, run retention and
// optional ngrok tunneling for external access during development.
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
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/cloudcover/api"
	"github.com/wricardo/cloudcover/sim/config"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/runs"
	"github.com/wricardo/cloudcover/sim/service"
	"github.com/wricardo/cloudcover/transport/mcp"
	"github.com/wricardo/cloudcover/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cloud Cover Simulator"
)

var log = logrus.WithField("component", "main")

// options holds the settings shared by all commands
type options struct {
	host          string
	port          int
	configDir     string
	debug         bool
	ngrok         bool
	ngrokAuth     string
	ngrokDomain   string
	runRetention  time.Duration
	maxRuns       int
	defaultPreset string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:          cmd.String("host"),
		port:          cmd.Int("port"),
		configDir:     cmd.String("config-dir"),
		debug:         cmd.Bool("debug"),
		ngrok:         cmd.Bool("ngrok"),
		ngrokAuth:     cmd.String("ngrok-auth"),
		ngrokDomain:   cmd.String("ngrok-domain"),
		runRetention:  cmd.Duration("run-retention"),
		maxRuns:       cmd.Int("max-runs"),
		defaultPreset: cmd.String("default-preset"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "cloudcover",
		Usage:   "Simulate clouds spreading over a terrain of airports",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing simulation presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
			&cli.DurationFlag{Name: "run-retention", Value: time.Hour, Usage: "How long stored runs are kept", Sources: cli.EnvVars("RUN_RETENTION")},
			&cli.IntFlag{Name: "max-runs", Value: runs.DefaultMaxRuns, Usage: "Maximum number of stored runs", Sources: cli.EnvVars("MAX_RUNS")},
			&cli.StringFlag{Name: "default-preset", Usage: "Preset used when a simulation names no parameters (default: classic)", Sources: cli.EnvVars("DEFAULT_PRESET")},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run the HTTP server with API, WebSocket and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server",
				Action:  mcpAction,
			},
			{
				Name:  "simulate",
				Usage: "Run one simulation and print the result as JSON. Without parameters or --preset the default preset runs.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "airports", Value: engine.MinAirports, Usage: "Number of airports"},
					&cli.IntFlag{Name: "clouds", Value: engine.MinClouds, Usage: "Number of cloud placements"},
					&cli.IntFlag{Name: "height", Value: engine.MinHeight, Usage: "Terrain height"},
					&cli.IntFlag{Name: "width", Value: engine.MinWidth, Usage: "Terrain width"},
					&cli.Uint64Flag{Name: "seed", Usage: "Random seed (random when omitted)"},
					&cli.StringFlag{Name: "preset", Usage: "Preset name instead of explicit parameters"},
					&cli.BoolFlag{Name: "summary", Usage: "Print only the summary"},
				},
				Action: simulateAction,
			},
		},
	}
}

// main loads .env, then runs the selected command
func main() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("error loading .env file")
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// setupLogging configures the shared logrus logger
func setupLogging(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetReportCaller(false)
	}
}

// services bundles the wired service layer
type services struct {
	sim     service.SimulationService
	runs    *runs.Manager
	presets *config.Manager
}

// newPresetManager opens the preset directory and applies --default-preset
func newPresetManager(opts options) (*config.Manager, error) {
	presets, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if opts.defaultPreset != "" {
		if err := presets.SetDefault(opts.defaultPreset); err != nil {
			return nil, fmt.Errorf("failed to set default preset: %w", err)
		}
	}
	log.WithField("preset", presets.GetDefault().Name).Debug("default preset")

	return presets, nil
}

// initializeServices wires the run registry, presets and simulation service
func initializeServices(opts options) (*services, error) {
	presets, err := newPresetManager(opts)
	if err != nil {
		return nil, err
	}

	runManager := runs.NewManager(opts.maxRuns)

	return &services{
		sim:     service.NewSimulationService(runManager, presets),
		runs:    runManager,
		presets: presets,
	}, nil
}

// runCleanupRoutine periodically removes runs older than the retention window
func runCleanupRoutine(ctx context.Context, manager *runs.Manager, retention time.Duration) {
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpired(retention); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired runs")
			}
		}
	}
}

// reloadPresetsOnSignal re-reads the preset directory whenever a signal
// arrives, until ctx is done
func reloadPresetsOnSignal(ctx context.Context, presets *config.Manager, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			presets.RefreshCache()
		}
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// newHandler builds the API server with the /mcp endpoint mounted on it
func newHandler(svc service.SimulationService, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(svc, hub)
	mcpClient := mcp.NewClient(baseURL)
	apiServer.Router().Handle("/mcp", mcpHandler(mcpClient)).Methods("POST")
	return apiServer
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)

	log.WithFields(logrus.Fields{"version": Version, "mode": "serve"}).Infof("starting %s", AppName)

	svcs, err := initializeServices(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runCleanupRoutine(ctx, svcs.runs, opts.runRetention)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadPresetsOnSignal(ctx, svcs.presets, hup)

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	addr := opts.addr()
	handler := newHandler(svcs.sim, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("addr", addr).Info("HTTP server listening")
		log.Infof("REST API: http://%s/api/simulation", addr)
		log.Infof("WebSocket: ws://%s/ws?run=<run_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP server shutdown error")
	}

	stop()
	wg.Wait()
	log.Info("server stopped")
	return err
}

// runNgrok exposes the handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.WithField("domain", opts.ngrokDomain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.WithField("url", url).Info("ngrok tunnel established")
	log.Infof("  REST API (ngrok): %s/api/simulation", url)
	log.Infof("  WebSocket (ngrok): %s/ws?run=<run_id>", url)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", url)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// mcpAction runs an MCP stdio server. It reuses an API already listening on
// host:port; otherwise it starts an internal API on a random loopback port.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)

	svcs, err := initializeServices(opts)
	if err != nil {
		return err
	}

	baseURL := "http://" + opts.addr()
	testClient := &http.Client{Timeout: 2 * time.Second}
	external := false
	if resp, err := testClient.Get(baseURL + "/health"); err == nil {
		external = resp.StatusCode < 500
		resp.Body.Close()
	}

	if external {
		log.WithField("url", baseURL).Info("external API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		baseURL = "http://" + listener.Addr().String()
		log.WithField("url", baseURL).Info("starting internal HTTP server for MCP stdio")

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go runCleanupRoutine(ctx, svcs.runs, opts.runRetention)

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{Handler: api.NewServer(svcs.sim, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")
	return server.ServeStdio(mcpClient.GetMCPServer())
}

// simulateAction runs one simulation and writes it to the command's writer
func simulateAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.debug)

	var presets service.ConfigManager
	if manager, err := newPresetManager(opts); err == nil {
		presets = manager
	} else if cmd.String("preset") != "" || opts.defaultPreset != "" {
		return err
	}

	req := service.SimulationRequest{Preset: cmd.String("preset")}

	// An empty request runs the default preset; without presets the flag
	// defaults (the smallest accepted terrain) apply
	explicit := cmd.IsSet("airports") || cmd.IsSet("clouds") || cmd.IsSet("height") || cmd.IsSet("width")
	if explicit || presets == nil {
		req.Params = engine.Params{
			Airports: cmd.Int("airports"),
			Clouds:   cmd.Int("clouds"),
			Height:   cmd.Int("height"),
			Width:    cmd.Int("width"),
		}
	}
	if cmd.IsSet("seed") {
		seed := cmd.Uint64("seed")
		req.Seed = &seed
	}

	info, err := service.NewSimulationService(nil, presets).Simulate(ctx, req)
	if err != nil {
		return err
	}

	var out interface{} = info.Result
	if cmd.Bool("summary") {
		out = info.Summary
	}

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
