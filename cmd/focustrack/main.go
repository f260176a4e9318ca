package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"focustrack/internal/api"
	"focustrack/pkg/coaching"
	"focustrack/pkg/config"
	"focustrack/pkg/db"
	"focustrack/pkg/db/maintenance"
	"focustrack/pkg/logging"
	"focustrack/pkg/model"
	"focustrack/pkg/probe"
	"focustrack/pkg/session"
	"focustrack/pkg/store"
	"focustrack/pkg/tracker"
	"focustrack/pkg/version"
)

var (
	configPath    = flag.String("config", config.DefaultPath, "Path to the config file")
	initConfig    = flag.Bool("init-config", false, "Generate default config file and exit")
	exportSession = flag.String("export-session", "", "Write the journal of a session as CSV to stdout and exit")
	showVersion   = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if *exportSession != "" {
		if err := export(context.Background(), *configPath, *exportSession); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("focustrack started", "version", version.Version, "variant", appCfg.Tracker.Variant)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, appCfg.DB.Retention.Std()); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	if err := probe.AnalyzeResults(probe.Run(ctx, startupProbes(appCfg, dbConn.DB))); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	provider := config.NewProvider(appCfg, st)

	src, err := initializeSensor(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize sensor: %w", err)
	}

	registry := coaching.NewRegistry(nil)
	src.SetAnchorObserver(registry)

	hub := api.NewHub(nil)
	defer hub.Close()

	tr := tracker.New(src, hub, trackerConfig(appCfg, provider.Selection(ctx)), nil)

	sessionMgr := session.NewManager(session.Config{
		Variant: appCfg.Tracker.Variant,
		Source:  sensorLabel(appCfg),
		Buffer:  appCfg.DB.EventBuffer,
	}, st, nil)
	sessionMgr.SetPublisher(hub)
	if err := sessionMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := sessionMgr.Close(closeCtx); err != nil {
			slog.Error("Failed to close session", "error", err)
		}
	}()

	tr.SetListener(tracker.MultiListener{sessionMgr, debugListener()})

	statusH := api.NewStatusHandler()
	srv := api.NewServer(appCfg.Server.Address,
		statusH,
		api.NewStatsHandler(tr, sessionMgr, hub),
		api.NewConfigHandler(st, provider),
		api.NewSurfaceHandler(registry),
		api.NewEventHandler(sessionMgr, st, st),
		hub,
		cancel,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	loop := &frameLoop{
		src:      src,
		tracker:  tr,
		provider: provider,
		status:   statusH,
		session:  sessionMgr,
		interval: appCfg.Ticker.FrameInterval.Std(),
		max:      appCfg.Ticker.MaxFrames,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := loop.run(gctx)
		// A finished script ends the run.
		cancel()
		return err
	})
	g.Go(func() error {
		err := runServerLifecycle(gctx, srv, quit)
		cancel()
		return err
	})
	return g.Wait()
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func startupProbes(appCfg *config.Config, journal *sql.DB) []probe.Probe {
	probes := []probe.Probe{
		probe.Database(journal, "sessions", "tracker_events", "visited_surfaces", "persistent_state"),
		probe.ListenAddress(appCfg.Server.Address),
		probe.WritableDir("Event Log Directory", filepath.Dir(appCfg.Log.Events.Path)),
	}
	if appCfg.Sensor.Provider == config.SensorScenario {
		probes = append(probes, probe.Scenario(appCfg.Sensor.Scenario))
	}
	return probes
}

func export(ctx context.Context, configPath, id string) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if _, err := st.GetSession(ctx, sessionID); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session %s not found", sessionID)
	}
	n, err := maintenance.ExportCSV(ctx, st, sessionID, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d events\n", n)
	return nil
}

func debugListener() tracker.Listener {
	return tracker.ListenerFuncs{
		Initialized: func() {
			slog.Debug("Tracker initialized")
		},
		AlignmentCommitted: func(a model.Alignment, hit r3.Vec) {
			slog.Debug("Alignment committed", "alignment", a, "y", hit.Y)
		},
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
