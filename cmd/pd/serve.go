package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/pipelines/internal/config"
	"github.com/alfredjeanlab/pipelines/internal/events"
	"github.com/alfredjeanlab/pipelines/internal/metrics"
	"github.com/alfredjeanlab/pipelines/internal/server"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the pipelines HTTP and gRPC servers",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (PIPELINES_NATS_URL not set)")
		}

		var m *metrics.Metrics
		if cfg.Metrics {
			m = metrics.New()
		}

		// Create server components.
		pipelineServer := server.NewPipelineServer(server.Options{
			Publisher: publisher,
			Metrics:   m,
			Logger:    logger,
			StrictIDs: cfg.StrictIDs,
		})

		// Start gRPC listener.
		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				publisher.Close()
				return err
			}
			grpcServer = server.NewGRPCServer(pipelineServer, server.GRPCConfig{AuthToken: cfg.AuthToken})

			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           pipelineServer.NewHTTPHandler(server.HTTPConfigFrom(cfg)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("pipelines server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"auth", cfg.AuthToken != "",
			"strict_ids", cfg.StrictIDs,
			"metrics", cfg.Metrics,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
