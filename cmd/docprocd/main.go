package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/app"
	"github.com/joseph-ayodele/docproc/internal/async"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/ingest"
	"github.com/joseph-ayodele/docproc/internal/server"
)

const healthInterval = 30 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger.Info("config loaded", "config", cfg.String())

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var inboxDir string
	if cfg.Server.InboxDir != "" {
		// absolute paths are accepted by the file source when under SOURCE_DIR
		abs, err := filepath.Abs(cfg.Server.InboxDir)
		if err != nil {
			return fmt.Errorf("inbox dir %q: %w", cfg.Server.InboxDir, err)
		}
		inboxDir = abs
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.RunTimeout),
	)

	srv := server.New(server.Config{
		PubSubName:     cfg.Server.PubSubName,
		Topic:          cfg.Server.Topic,
		Route:          cfg.Server.Route,
		RequestTimeout: cfg.Server.RunTimeout,
	}, queue, a.Extractor, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		queue.Shutdown(ctx)
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr, "route", cfg.Server.Route)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		watchHealth(gctx, healthServer, a.Dispatcher.HealthCheck, healthInterval, logger)
		return nil
	})
	if inboxDir != "" {
		inbox := ingest.NewInbox(queue, constants.StaticInvoiceTemplate, logger)
		g.Go(func() error {
			return inbox.Watch(gctx, ingest.WatchConfig{
				Roots:       []string{inboxDir},
				InitialScan: true,
				SkipHidden:  true,
				Debounce:    500 * time.Millisecond,
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		queue.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}

// watchHealth keeps the overall gRPC status in step with check, checking once
// immediately and then every interval until ctx ends.
func watchHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	update := func() {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			logger.Warn("health.degraded", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			update()
		}
	}
}
