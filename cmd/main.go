/*
Package main is the entry point for the TaskForge collaboration relay.

It loads configuration, initializes the global logging system, connects to the
tracker database for membership checks when configured, starts the relay
Manager and HTTP server, and handles operating system interrupt signals
(SIGINT, SIGTERM) for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabrelay/internal/app/db"
	"collabrelay/internal/app/membership"
	"collabrelay/internal/app/relay"
	"collabrelay/internal/configs"
	"collabrelay/internal/handler"
	"collabrelay/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("allow_anonymous", cfg.AllowAnonymous).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Membership checks read the tracker database. Without a DSN the relay
	// admits every join, which is acceptable only in development.
	var checker membership.Checker = membership.AllowAll{}
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to tracker database")
		}
		defer pool.Close()

		checker = membership.NewPostgresChecker(pool)
	} else {
		logx.Warn("DATABASE_URL not set. Project membership checks are disabled.")
	}

	// Initialize relay Manager
	manager := relay.NewManager()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Manager:    manager,
		Config:     cfg,
		Membership: checker,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Collaboration relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
