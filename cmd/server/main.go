package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/HORDE/internal/config"
	"github.com/copyleftdev/HORDE/internal/errors"
	"github.com/copyleftdev/HORDE/internal/logging"
	"github.com/copyleftdev/HORDE/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "swarm-optimization-server",
		"version": "1.0.0",
	})

	ctxLogger := &logging.CtxLogger{Logger: serviceLogger}
	ctx = ctxLogger.WithContext(ctx)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(errors.RecoveryMiddleware(serviceLogger))
	r.Use(middleware.Timeout(60 * time.Second))

	// Add health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context())
		if logger != nil {
			logger.Info("Health check")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Add metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Create server instance with our logger
	srv := server.NewServer(cfg, serviceLogger, nil)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start HTTP server
	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", map[string]interface{}{"error": err})
	}

	serviceLogger.Info("Server stopped")
}
