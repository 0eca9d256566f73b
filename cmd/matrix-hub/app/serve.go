package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agent-matrix/matrix-hub/internal/api"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/catalog/sqlite"
	"github.com/agent-matrix/matrix-hub/internal/config"
	"github.com/agent-matrix/matrix-hub/internal/gateway"
	"github.com/agent-matrix/matrix-hub/internal/ingest"
	"github.com/agent-matrix/matrix-hub/internal/install"
	"github.com/agent-matrix/matrix-hub/internal/logger"
	"github.com/agent-matrix/matrix-hub/internal/scheduler"
	"github.com/agent-matrix/matrix-hub/internal/search"
)

// Timeouts mirror cmd/thv-registry-api/app/serve.go's constants:
// Kubernetes-friendly shutdown budget, and read/write/idle settings
// sized for a server that mostly does quick catalog lookups plus
// occasional slower install/ingest calls.
const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 20 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 30 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the matrix-hub HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("lease-file", "", "Path to a lock file coordinating the scheduler across processes (optional)")

	bindPFlag(cmd, "listen_address", "address")
	bindPFlag(cmd, "scheduler.lease_file", "lease-file")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return newMisconfigurationError(fmt.Errorf("loading configuration: %w", err))
	}
	for _, warning := range cfg.Diagnostics() {
		logger.Warn(warning)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return newMisconfigurationError(err)
	}
	defer closeStore()

	if err := seedRemotes(ctx, store, cfg.Remotes); err != nil {
		return fmt.Errorf("seeding configured remotes: %w", err)
	}

	registrar := newRegistrar(cfg, store)
	searchEngine := search.New(store, cfg.LexicalBackend, cfg.VectorBackend, cfg.HybridWeights, cfg.RecencyTauDays, cfg.PublicBaseURL)

	var executorOpts []install.ExecutorOption
	var engineOpts []ingest.Option
	if registrar != nil {
		// A nil *gateway.Registrar must never be passed to these
		// options: boxed in the GatewayInstaller/GatewayRegistrar
		// interfaces it would compare non-nil yet panic on first use.
		executorOpts = append(executorOpts, install.WithGateway(registrar))
		engineOpts = append(engineOpts, ingest.WithGatewayRegistrar(registrar))
	}
	executor := install.NewExecutor(executorOpts...)
	installer := install.NewInstaller(store, executor)
	engine := ingest.New(store, cfg.IngestWorkerPool, cfg.DeriveToolsFromMCP, engineOpts...)

	var schedOpts []scheduler.Option
	if leaseFile := viper.GetString("scheduler.lease_file"); leaseFile != "" {
		schedOpts = append(schedOpts, scheduler.WithCrossProcessLease(leaseFile))
	}
	sched := scheduler.New(engine, cfg.IngestInterval, schedOpts...)

	schedCtx, cancelSched := context.WithCancel(context.Background())
	go sched.Start(schedCtx)
	defer func() {
		cancelSched()
		sched.Stop()
	}()

	handler := api.NewServer(api.Deps{
		Store:             store,
		SearchEngine:      searchEngine,
		Installer:         installer,
		IngestEngine:      engine,
		Scheduler:         sched,
		AdminToken:        cfg.AdminToken,
		PublicSearchLimit: cfg.PublicSearchLimitCap,
	}, api.WithMiddlewares(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(serverRequestTimeout),
		api.LoggingMiddleware,
	))

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("matrix-hub listening on %s", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
		logger.Info("shutting down matrix-hub...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("matrix-hub shutdown complete")
	}

	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, func(), error) {
	db, err := sqlite.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %q: %w", cfg.DatabaseURL, err)
	}
	return sqlite.NewStore(db), func() { _ = db.Close() }, nil
}

func seedRemotes(ctx context.Context, store catalog.Store, remotes []string) error {
	for _, remoteURL := range remotes {
		if _, err := store.UpsertRemote(ctx, remoteURL); err != nil {
			return fmt.Errorf("remote %q: %w", remoteURL, err)
		}
	}
	return nil
}

func newRegistrar(cfg *config.Config, store catalog.Store) *gateway.Registrar {
	if cfg.GatewayURL == "" {
		return nil
	}
	client := gateway.NewClient(gateway.Config{
		BaseURL:       cfg.GatewayURL,
		Token:         cfg.GatewayToken,
		JWTSecret:     cfg.GatewayJWTSecret,
		AdminUsername: cfg.GatewayAdminUser,
	})
	return gateway.NewRegistrar(client, store)
}
