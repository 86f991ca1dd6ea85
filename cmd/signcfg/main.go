package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/signcfg/internal/application"
	"github.com/eugenenazirov/signcfg/internal/config"
	"github.com/eugenenazirov/signcfg/internal/logging"
	"github.com/eugenenazirov/signcfg/internal/storage"
)

var signalNotify = signal.Notify

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	if command == serveCommand {
		serve(cfg, logger)
		return
	}

	if err := runCommand(command, cfg, logger, os.Stdout); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func serve(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	waitForSignals(app, cfg.ShutdownGracePeriod, logger)
}

type service interface {
	Server() *http.Server
	Reload() (storage.Snapshot, error)
}

// waitForSignals reloads the properties file on SIGHUP and shuts the server
// down on SIGINT or SIGTERM.
func waitForSignals(svc service, timeout time.Duration, logger *zap.Logger) {
	sigs := make(chan os.Signal, 1)
	signalNotify(sigs, syscall.SIGHUP, os.Interrupt, syscall.SIGTERM)

	for sig := range sigs {
		if sig == syscall.SIGHUP {
			if _, err := svc.Reload(); err != nil {
				logger.Warn("reload failed, keeping previous signing snapshot", zap.Error(err))
			}
			continue
		}

		logger.Info("shutting down server", zap.String("signal", sig.String()))
		shutdown(svc.Server(), timeout, logger)
		return
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
