package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/agent"
	"github.com/signalbeam-io/signalbeam-collector/internal/config"
	"github.com/signalbeam-io/signalbeam-collector/internal/logging"
	"github.com/signalbeam-io/signalbeam-collector/internal/publisher"
	"github.com/signalbeam-io/signalbeam-collector/internal/version"
)

const shutdownGrace = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("signalbeam collector starting",
		zap.String("version", version.Short()),
		zap.String("device_id", cfg.Device.ID),
		zap.String("broker", cfg.MQTT.Broker),
	)

	pub := publisher.New(cfg.MQTT, cfg.Device.ID, logger)
	a := agent.New(cfg, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-runErr:
		if err != nil {
			logger.Error("collector failed", zap.Error(err))
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := a.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("signalbeam collector stopped")

	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}
