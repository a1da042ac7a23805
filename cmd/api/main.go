package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"venuepermits/internal/config"
	"venuepermits/internal/db"
	"venuepermits/internal/db/migrations"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/repository/memory"
	"venuepermits/internal/routes"
	"venuepermits/internal/seed"
	"venuepermits/internal/services"
	"venuepermits/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var seedPath string
	flagSet := pflag.NewFlagSet("api", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flagSet.StringVar(&cfg.Store, "store", cfg.Store, "persistence backend: postgres or memory")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&seedPath, "seed", "", `YAML fixture applied at startup ("default" for the built-in admin)`)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	s3cfg, err := config.NewS3Config(ctx)
	if err != nil {
		return fmt.Errorf("load s3 config: %w", err)
	}

	var stores routes.Stores
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		var docs interfaces.DocumentStore = memory.NewBlobs("memory://documents")
		if s3cfg.Enabled() {
			docs = services.NewS3DocumentStore(s3cfg)
		}
		stores = routes.MemoryStores(memory.NewStore(), docs)
	default:
		if err := db.CreateDatabaseIfNotExists(ctx, cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("ensure database exists: %w", err)
		}
		database, err := db.New(ctx, cfg.DatabaseURL, db.Options{
			MaxOpenConns:    cfg.DBMaxConns,
			MaxIdleConns:    cfg.DBMaxConns / 2,
			ConnMaxLifetime: 30 * time.Minute,
		}, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := migrations.RunMigrations(ctx, database.DB, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		var docs interfaces.DocumentStore
		if s3cfg.Enabled() {
			docs = services.NewS3DocumentStore(s3cfg)
		} else {
			logger.Warn("S3_BUCKET_NAME not set; permit document uploads are disabled")
		}
		stores = routes.PostgresStores(database.DB, docs)
	}

	if seedPath != "" {
		fixture, err := seed.Load(seedPath)
		if err != nil {
			return fmt.Errorf("load seed fixture: %w", err)
		}
		res, err := seed.NewSeeder(stores.Users, stores.Venues, logger).Apply(ctx, fixture)
		if err != nil {
			return fmt.Errorf("apply seed fixture: %w", err)
		}
		logger.Info("seed applied", "users_created", res.UsersCreated, "venues_created", res.VenuesCreated)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(stores, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.Store, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
