package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"smartspend/internal/amqp"
	"smartspend/internal/cache"
	"smartspend/internal/cli"
	"smartspend/internal/config"
	apphttp "smartspend/internal/http"
	"smartspend/internal/insight"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/store/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	store, err := memory.NewFromFile(cfg.SeedFile)
	if err != nil {
		logger.Error("Failed to load seed expenses", "error", err, "path", cfg.SeedFile)
		os.Exit(1)
	}

	readyChecks := map[string]apphttp.ReadyCheck{}

	// Events are optional; without AMQP_URL the collection never leaves the process.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	var eventQueue *services.AsyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		// Writes never wait on the broker; the queue sends in the background.
		eventQueue = services.NewAsyncPublisher(amqpClient, 256, 15*time.Second)
		publisher = eventQueue
		readyChecks["amqp"] = amqpClient.Ready
		logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Expense events disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(store, publisher)

	generator := insight.NewGenerator(cfg.InsightDelay)
	caches := cache.NewManager()
	caches.Register("insights", generator.Cache())

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Expenses:           expenses,
		Insights:           generator,
		Logger:             logger,
		DefaultCurrency:    cfg.DefaultCurrency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Caches:             caches,
		ReadyChecks:        readyChecks,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if eventQueue != nil {
			if err := eventQueue.Close(ctx); err != nil {
				logger.Warn("Pending expense events not sent", "error", err)
			}
			if n := eventQueue.Dropped(); n > 0 {
				logger.Warn("Expense events dropped while the queue was full", "count", n)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
	})

	items, version, _ := expenses.Snapshot(context.Background())
	logger.Info("Starting smartspend server",
		"port", cfg.Port,
		"expenses", len(items),
		"version", version,
		"currency", cfg.DefaultCurrency)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
