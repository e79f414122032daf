package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/api"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/logging"
	"github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logFile := logging.Setup(logging.Params{
		Level:    cfg.Log.Level,
		JSON:     cfg.Log.Format == "json",
		File:     cfg.Log.File,
		ToStdout: cfg.Log.ToStdout,
	})
	defer logFile.Close()
	log.Info("LiftLog starting", "version", Version)

	// Open the state database; migrations run on open
	db, err := storage.OpenStateDB(cfg.Storage.Dir)
	if err != nil {
		log.Error("failed to open state database", "dir", cfg.Storage.Dir, "error", err)
		os.Exit(1)
	}
	log.Info("state database ready", "dir", cfg.Storage.Dir)

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		_ = db.Close()
		return
	}

	if err := run(cfg, db, log); err != nil {
		log.Error("liftlog stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, db *storage.StateDB, log *slog.Logger) (err error) {
	defer func() { err = multierr.Append(err, db.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("liftlog", "engine", reg)

	client := api.NewClient(api.Options{
		BaseURL:         cfg.API.BaseURL,
		Token:           cfg.API.Token,
		Timeout:         cfg.API.Timeout,
		CatalogCacheMB:  cfg.API.CatalogCacheMB,
		CatalogCacheTTL: cfg.API.CatalogCacheTTL,
		Log:             log.With("component", "api"),
		Metrics:         m,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One engine per session kind; each restores its persisted session
	engines := map[models.SessionKind]*workout.Engine{}
	for _, kind := range []models.SessionKind{models.KindWorkout, models.KindTemplate} {
		store := workout.NewStore(kind, db, workout.StoreOptions{
			Debounce: cfg.Session.PersistDebounce,
			Log:      log.With("component", "store"),
			Metrics:  m,
		})
		e := workout.NewEngine(store, client, workout.EngineOptions{
			RestTimers:     cfg.RestTimers,
			TickInterval:   cfg.Session.TickInterval,
			HistoryTimeout: cfg.Session.HistoryTimeout,
			Log:            log.With("component", "engine"),
			Metrics:        m,
		})
		if _, err := e.Restore(ctx); err != nil {
			log.Warn("could not restore session; starting empty", "kind", kind, "error", err)
		}
		engines[kind] = e
	}

	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			recordCommits(ctx, e, db, log)
		}()
	}

	opts := server.Options{
		Workout:  engines[models.KindWorkout],
		Template: engines[models.KindTemplate],
		Source:   client,
		Commits:  db,
		Metrics:  m,
		Gatherer: reg,
		APIKey:   cfg.Auth.APIKey,
		Log:      log.With("component", "http"),
	}
	if cfg.MCP.Enabled {
		mcpSrv := mcp.New(mcp.Deps{
			Workout:  engines[models.KindWorkout],
			Template: engines[models.KindTemplate],
			Commits:  db,
		}, Version, log.With("component", "mcp"))
		opts.MCP = mcpserver.NewStreamableHTTPServer(mcpSrv)
		log.Info("mcp endpoint enabled", "path", "/mcp")
	}
	srv := server.New(opts)

	// Start server — tsnet or plain HTTP
	listener, closeListener, err := listen(cfg, log)
	if err != nil {
		stop()
		wg.Wait()
		return err
	}
	defer closeListener()

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		log.Error("server error", "error", err)
	}
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		err = multierr.Append(err, fmt.Errorf("http shutdown: %w", serr))
	}
	wg.Wait()

	// Flush pending session writes
	for kind, e := range engines {
		if cerr := e.Close(shutdownCtx); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("flushing %s session: %w", kind, cerr))
		}
	}
	return err
}

func listen(cfg *config.Config, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		return listener, func() {}, nil
	}

	tsServer := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := tsServer.Start(); err != nil {
		return nil, nil, fmt.Errorf("tsnet start: %w", err)
	}
	listener, err := tsServer.Listen("tcp", ":80")
	if err != nil {
		_ = tsServer.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return listener, func() { _ = tsServer.Close() }, nil
}

// recordCommits appends every commit the engine announces to the local log.
func recordCommits(ctx context.Context, e *workout.Engine, db *storage.StateDB, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.Events():
			switch ev.Type {
			case workout.EventCommitted:
				rec := storage.CommitRecord{Kind: e.Kind(), RemoteID: ev.ID, Name: ev.Name, CommittedAt: ev.At}
				if err := db.RecordCommit(context.WithoutCancel(ctx), rec); err != nil {
					log.Warn("recording commit", "kind", e.Kind(), "error", err)
				}
			case workout.EventRestTimerElapsed:
				log.Info("rest over", "exercise", ev.Trigger.ExerciseIdentifier, "set", ev.Trigger.SetIdentifier)
			}
		}
	}
}
