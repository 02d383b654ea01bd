package main

import (
	"context"
	"errors"
	"os"
	"time"

	"smartspend/internal/amqp"
	"smartspend/internal/backend"
	"smartspend/internal/cli"
	"smartspend/internal/config"
	"smartspend/internal/log"
	"smartspend/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting smartspend-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ledger := cli.OpenLedger(logger, cfg.LedgerDBPath)
	defer ledger.Close()

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", "error", err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(context.Background(), mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", "error", err, "mirror", mirrorCfg.Type)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	w := worker.NewMirrorWorker(ledger, mirror.Mirror, cfg.LedgerRetention)
	if err := w.Run(ctx, amqpClient, cfg.PruneInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
