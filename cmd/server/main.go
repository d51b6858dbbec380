package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/db"
	"github.com/diewo77/sgm/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	if err := RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd builds the sgm command. Running it without a subcommand serves
// the API.
func RootCmd() *cobra.Command {
	cfg := config.Load()
	root := &cobra.Command{
		Use:          "sgm",
		Short:        "Mineral supply chain management server",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Setup(cfg.Log.Level, cfg.Log.JSON)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&cfg.Log.JSON, "log-json", cfg.Log.JSON, "write logs as JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Run DB migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				conn, err := db.Connect(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				if err := db.Migrate(conn); err != nil {
					return err
				}
				logger.GetDefault().Info("Migrations completed successfully")
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Seed permissions, role profiles and the bootstrap admin, then exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				conn, err := db.Connect(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				if err := db.Seed(conn, cfg.App); err != nil {
					return err
				}
				logger.GetDefault().Info("Seeding completed successfully")
				return nil
			},
		},
	)
	return root
}

// serve runs the API until SIGINT or SIGTERM, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.GetDefault()
	ctx = logger.ContextWithLogger(ctx, log)

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Create server with config timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err, ok := <-errc:
		if ok {
			log.Error("Server error", "error", err)
			return err
		}
		return nil
	case <-quit:
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
		return err
	}
	log.Info("Server stopped gracefully")
	return nil
}
