package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	opts := []budget.Option{
		budget.WithKey(cfg.StorageKey),
		budget.WithLogger(logger),
	}

	// A broker that is down at startup leaves notifications disabled.
	if cfg.NotificationsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change notifications disabled", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, budget.WithNotifier(client))
			logger.Info("Change notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	store := budget.NewStore(res.KV, opts...)
	snap, err := store.Load(ctx)
	if err != nil {
		logger.Error("Failed to load budget", log.FieldError, err, log.FieldKey, cfg.StorageKey)
		os.Exit(1)
	}
	if snap.RolledOver {
		logger.Info("Started a new month", log.FieldPrevious, snap.PreviousPeriod, log.FieldPeriod, snap.Record.Period)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bilancio server",
			"port", cfg.Port, log.FieldBackend, string(res.Type), log.FieldPeriod, snap.Record.Period)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
