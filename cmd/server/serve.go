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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"komunitas/pendataan/internal/cache"
	pendataangrpc "komunitas/pendataan/internal/grpc"
	internalhttp "komunitas/pendataan/internal/http"
	"komunitas/pendataan/internal/jobs"
	"komunitas/pendataan/internal/metrics"
	"komunitas/pendataan/internal/service"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveRun(cmd.Context(), commonRun())
		},
	}
}

func serveRun(parent context.Context, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	c, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	dispatcher := cache.NewDispatcher(c, logger, m)

	submissions := service.NewSubmissions(store, store, dispatcher, m, logger)
	server := internalhttp.NewServer(cfg, internalhttp.Deps{
		Submissions: submissions,
		Posts:       service.NewPosts(store, dispatcher, logger),
		Accounts:    service.NewAccounts(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, logger),
		Cache:       c,
		Metrics:     m,
		Gatherer:    registry,
		Logger:      logger,
		Ready:       store.Ping,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health := pendataangrpc.NewHealth(store.Ping, logger)
	health.Register(grpcServer)
	healthDone := health.Watch(ctx, 15*time.Second)
	warmDone := jobs.StartStatisticsWarmJob(ctx, cfg, submissions, c, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			errCh <- err
			return
		}
		logger.Info("grpc listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(listener); err != nil {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("server error", "error", serveErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	<-healthDone
	grpcServer.GracefulStop()
	<-warmDone
	logger.Info("stopped")
	return serveErr
}
