package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campaign-automator-api/internal/api"
	"campaign-automator-api/internal/config"
	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/metrics"
	"campaign-automator-api/internal/notify"
	"campaign-automator-api/internal/store"
	"campaign-automator-api/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, when AUTOMATION_INTERVAL is set, the in-process scheduler",
	RunE:  runServe,
}

// dbPool is what buildServer needs from the pool; *pgxpool.Pool and pgxmock both fit.
type dbPool interface {
	database.Querier
	Ping(ctx context.Context) error
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is niet ingesteld")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	sink, closeSink, err := buildSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	server, appWorker, err := buildServer(cfg, pool, sink, metrics.New(), log)
	if err != nil {
		return err
	}
	if appWorker != nil {
		appWorker.Start()
		defer appWorker.Stop()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.String("addr", server.Addr), zap.String("component", "main"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server", zap.String("component", "main"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildServer wires store, runner, router and the optional worker without
// starting anything.
func buildServer(cfg *config.Config, pool dbPool, sink notify.Sink, m *metrics.Metrics, log *zap.Logger) (*http.Server, *worker.Worker, error) {
	dbStore := store.NewStore(pool)
	runner := newRunner(cfg, dbStore, sink, m, log)

	var appWorker *worker.Worker
	if cfg.Automation.Interval > 0 {
		w, err := worker.NewWorker(runner, cfg.Automation.Interval, cfg.Automation.BatchTimeout, log)
		if err != nil {
			return nil, nil, fmt.Errorf("could not initialize worker: %w", err)
		}
		appWorker = w
	}

	apiServer := api.NewServer(dbStore, runner, pool, m, cfg, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiServer.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Automation.BatchTimeout + 10*time.Second, // een batch mag de response niet afkappen
		IdleTimeout:  120 * time.Second,
	}
	return server, appWorker, nil
}
