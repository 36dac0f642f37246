package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/worker"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-worker: %v\n", err)
		os.Exit(1)
	}
}

func run(parent context.Context) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to consume ledger events")
	}

	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout, log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	ctx, cancel := cli.GracefulShutdown(parent, logger)
	defer cancel()

	factory := backend.NewFactory(logger)

	sourceCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	source, err := factory.OpenStore(ctx, sourceCfg)
	if err != nil {
		return fmt.Errorf("open primary store: %w", err)
	}
	defer source.Close()

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		return err
	}
	mirror, err := factory.OpenStore(ctx, mirrorCfg)
	if err != nil {
		return fmt.Errorf("open mirror store: %w", err)
	}
	defer mirror.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(source, mirror, logger)

	// Recover events missed while the worker was down.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, syncWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Periodic reconcile as a backup for lost messages.
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := syncWorker.Reconcile(gctx); err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("message consumption failed: %w", err)
	}
	logger.Info("Worker shutdown complete")
	return nil
}
