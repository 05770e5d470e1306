package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	graphadapter "github.com/mkalstad/teamsrelay/internal/adapter/driven/graph"
	sqliteadapter "github.com/mkalstad/teamsrelay/internal/adapter/driven/sqlite"
	httphandler "github.com/mkalstad/teamsrelay/internal/adapter/driving/http"
	wshandler "github.com/mkalstad/teamsrelay/internal/adapter/driving/ws"
	"github.com/mkalstad/teamsrelay/internal/application"
	"github.com/mkalstad/teamsrelay/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"docs_dir", cfg.DocsDir,
		"poll_interval", cfg.PollInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Ensure the documents directory exists.
	if err := os.MkdirAll(cfg.DocsDir, 0o755); err != nil {
		return err
	}

	// 4. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 5. Wire shared state and adapters.
	history := sqliteadapter.NewHistoryRepo(db)
	resources := application.NewResourceMap()
	hub := application.NewBroadcaster(slog.Default())
	docSvc := application.NewDocService(cfg.DocsDir, slog.Default())

	tokenSrc := graphadapter.NewTokenSource(cfg.LoginBaseURL, cfg.TenantID, cfg.ClientID, cfg.ClientSecret)
	credentials := application.NewCredentials(tokenSrc)
	graphClient := graphadapter.NewClient(cfg.GraphBaseURL, cfg.ChatID, credentials.Get, slog.Default())
	proxySvc := application.NewProxyService(resources, graphClient, credentials, slog.Default())

	// 6. Start the sync service when Graph credentials are configured.
	if cfg.HasGraphCredentials() {
		rewriter := application.NewRewriter(resources, cfg.PublicBaseURL)
		syncSvc := application.NewSyncService(graphClient, rewriter, hub, credentials, cfg.PollInterval, slog.Default())
		go syncSvc.Start(ctx)
		slog.Info("sync service started", "chat", cfg.ChatID, "interval", cfg.PollInterval)
	} else {
		slog.Info("no graph credentials configured, upstream polling disabled")
	}

	// 7. Register HTTP and WebSocket routes on one mux.
	apiHandler := httphandler.NewHandler(proxySvc, docSvc, history, hub, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)
	wshandler.RegisterRoutes(mux, wshandler.NewHandler(hub, slog.Default()))
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with a 10s drain window.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
