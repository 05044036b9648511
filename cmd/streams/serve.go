package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/streams/internal/config"
	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/metrics"
	"github.com/alfredjeanlab/streams/internal/server"
	"github.com/alfredjeanlab/streams/internal/store"
	"github.com/alfredjeanlab/streams/internal/store/memstore"
	"github.com/alfredjeanlab/streams/internal/store/postgres"
	"github.com/alfredjeanlab/streams/internal/streams"
	streamsync "github.com/alfredjeanlab/streams/internal/sync"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the streams HTTP and gRPC servers",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		inMemory, _ := cmd.Flags().GetBool("memory")

		// Load configuration.
		load := config.Load
		if inMemory {
			load = config.LoadInMemory
		}
		cfg, err := load()
		if err != nil {
			return err
		}
		level, _ := config.ParseLevel(cfg.LogLevel)
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		// Open the store.
		var st store.Store
		if inMemory {
			st = memstore.New()
			logger.Warn("using in-memory store, data is lost on exit")
		} else {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
		}

		m := metrics.New()
		hub := server.NewEventHub()

		// Create event publisher. The SSE hub always receives events.
		publisher := events.Publisher(hub)
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = events.Multi(pub, hub)
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("NATS events disabled (STREAMS_NATS_URL not set)")
		}

		svc := streams.New(st,
			streams.WithPublisher(publisher),
			streams.WithLogger(logger),
			streams.WithMetrics(m),
		)
		srv := server.New(svc, hub, m, logger)
		srv.Presence().StartReaper(nil)
		grpcServer, healthServer := server.NewGRPCServer(cfg.AuthToken)

		// Start gRPC listener.
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start sync scheduler if any destinations are configured.
		var scheduler *streamsync.Scheduler
		if cfg.SyncEnabled() {
			dests := syncDestinations(cfg, logger)
			if len(dests) > 0 {
				scheduler = streamsync.NewScheduler(st, dests, cfg.SyncInterval, logger, m)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		if cfg.AuthToken == "" {
			logger.Warn("auth disabled (STREAMS_AUTH_TOKEN not set)")
		}
		logger.Info("streams server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"types", len(svc.Types()),
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(server.HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

		srv.Presence().Stop()

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		// SSE handlers block until their channel closes.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// syncDestinations builds the backup destinations enabled in cfg. A
// destination that cannot be created is logged and skipped.
func syncDestinations(cfg *config.Config, logger *slog.Logger) []streamsync.Destination {
	var dests []streamsync.Destination

	if cfg.SyncS3Bucket != "" {
		s3Dest, err := streamsync.NewS3Destination(context.Background(), streamsync.S3Options{
			Bucket:   cfg.SyncS3Bucket,
			Key:      cfg.SyncS3Key,
			Region:   cfg.SyncS3Region,
			Endpoint: cfg.SyncS3Endpoint,
		})
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}

	if cfg.SyncFile != "" {
		dests = append(dests, streamsync.NewFileDestination(cfg.SyncFile))
		logger.Info("sync file destination enabled", "path", cfg.SyncFile)
	}

	return dests
}

func init() {
	serveCmd.Flags().Bool("memory", false, "use the in-memory store instead of Postgres")
}
