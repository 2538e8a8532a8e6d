package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/app"
	"github.com/room4-2/FrontDesk/config"
	"github.com/room4-2/FrontDesk/logging"
	"github.com/room4-2/FrontDesk/server"
	"github.com/room4-2/FrontDesk/session"
)

// listener is satisfied by both transports.
type listener interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	desk, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start front desk", zap.Error(err))
	}
	defer desk.Close()

	sessionManager := session.NewManager(session.Config{
		MaxSessions:    cfg.MaxSessions,
		SessionTimeout: cfg.SessionTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxBufferSize:  cfg.MaxBufferSize,
		TurnRate:       cfg.TurnRate,
		TurnBurst:      cfg.TurnBurst,
	}, desk.Machine, desk.Redis, logger, desk.Metrics)

	// Start cleanup routine
	go sessionManager.StartCleanupRoutine(ctx)

	var servers []listener
	switch cfg.ServerType {
	case "websocket":
		servers = append(servers, server.NewServerWebsocket(cfg, sessionManager, logger))
	case "twilio":
		servers = append(servers, server.NewServerTwilio(cfg, sessionManager, logger))
	case "both":
		servers = append(servers,
			server.NewServerWebsocket(cfg, sessionManager, logger),
			server.NewServerTwilio(cfg, sessionManager, logger))
	default:
		logger.Fatal("Unknown SERVER_TYPE", zap.String("server_type", cfg.ServerType))
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv listener) {
			errs <- srv.Start()
		}(srv)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errs:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown error", zap.Error(err))
		}
	}
	sessionManager.Shutdown()

	logger.Info("Server stopped")
}
