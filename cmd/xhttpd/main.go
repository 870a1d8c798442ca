package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/api"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/config"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/factory"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

func main() {
	ctx := context.Background()

	// Load configuration from flags and environment
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n%s", err, config.Usage)
		os.Exit(2)
	}

	// Writes to peers that hung up must fail with EPIPE, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	logger.Init(cfg.Debug)
	logger.Info("Starting xhttpd...",
		"mode", cfg.Mode,
		"port", cfg.Port,
		"workers", cfg.NumThreads)

	// Create upstream resolver (proxy mode only)
	var resolver core.UpstreamResolver
	if cfg.Mode == core.ModeProxy {
		resolver, err = factory.NewResolverFactory(cfg).Create(ctx)
		if err != nil {
			logger.Fatal("Failed to create upstream resolver", "error", err)
		}
	}

	connectionHandler, err := factory.NewHandlerFactory(cfg).Create(resolver)
	if err != nil {
		logger.Fatal("Failed to create request handler", "error", err)
	}

	// Start TCP listener
	listener, err := core.Listen(ctx, cfg.Port)
	if err != nil {
		logger.Fatal("Failed to start listener", "port", cfg.Port, "error", err)
	}
	logger.Info("Listening", "addr", listener.Addr().String())

	server := &core.Server{
		Listener:          listener,
		ConnectionHandler: connectionHandler,
		Workers:           cfg.NumThreads,
		Queue:             core.NewWorkQueue(),
	}

	var healthServer *api.HealthServer
	if cfg.HealthServerPort != "" {
		healthServer = api.NewHealthServer(":"+cfg.HealthServerPort, server, cfg.Mode, cfg.NumThreads)
		if err := healthServer.Start(); err != nil {
			logger.Fatal("Failed to start health server", "error", err)
		}
	}

	// Closing the listener is the shutdown path: Serve returns once Accept fails.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Caught signal, closing listener", "signal", sig.String())
		if err := listener.Close(); err != nil {
			logger.Warn("Failed to close listener (ignoring)", "error", err)
		}
	}()

	// Start serving (blocking)
	if err := server.Serve(); err != nil {
		logger.Fatal("Server error", "error", err)
	}
	logger.Info("Shutting down...")

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Warn("Failed to stop health server", "error", err)
		}
	}
}
