// Command bilancio-alerts consumes budget change notifications and logs an
// alert when a category goes near or over its limit.
package main

import (
	"context"
	"errors"
	"os"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()

	if !cfg.NotificationsEnabled() {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	alerts := worker.NewAlertWorker(logger)

	logger.Info("Starting bilancio-alerts", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err = client.ConsumeChanges(ctx, alerts.HandleChange)
	m := alerts.GetMetrics()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Alerts consumer stopped", "handled", m.Handled, "alerts", m.Alerts, "skipped", m.Skipped)
}
