// Command courtreeld runs the Courtreel daemon: it owns the job queue,
// processes telemetry through the pipeline, and serves the HTTP API that
// accepts submissions and vision-service callbacks.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"courtreel/internal/config"
	"courtreel/internal/daemon"
	"courtreel/internal/logging"
	"courtreel/internal/pipeline"
	"courtreel/internal/queue"
	"courtreel/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	runner := pipeline.NewRunner(cfg, logger)
	manager := workflow.NewManager(cfg, store, runner, nil, logger)

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}
	if addr := d.APIAddress(); addr != "" {
		logger.Info("api listening", logging.String("addr", addr))
	}

	<-ctx.Done()
	logger.Info("courtreeld shutting down")
}
