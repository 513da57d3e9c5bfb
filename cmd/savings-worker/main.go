package main

import (
	"context"
	"errors"
	"os"
	"time"

	"savings/internal/amqp"
	"savings/internal/cli"
	"savings/internal/config"
	"savings/internal/log"
	gsheet "savings/internal/sheets/google"
	"savings/internal/worker"
)

const (
	restartDelay    = 5 * time.Second
	maxRestartDelay = time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentWorker)

	logger.Info("Starting savings-worker")
	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	ledger, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets ledger initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	ledgerWorker := worker.NewLedgerWorker(ledger)

	// Consume until shutdown; a dropped broker connection restarts the
	// consumer with a growing delay.
	delay := restartDelay
	for {
		started := time.Now()
		err := consume(ctx, cfg, ledgerWorker.HandleGoalEvent)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > maxRestartDelay {
			delay = restartDelay
		}
		logger.Error("Goal event consumption failed", "error", err, "retry_in", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRestartDelay)
	}
}

func consume(ctx context.Context, cfg *config.Config, handler func(context.Context, *amqp.GoalEventMessage) error) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.ConsumeGoalEvents(ctx, handler)
}
