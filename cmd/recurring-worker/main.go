package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetkeeper/internal/cli"
	"budgetkeeper/internal/config"
	"budgetkeeper/internal/log"
	"budgetkeeper/internal/services"
)

// recurring-worker asks a running budgetkeeper server to materialize due
// paychecks and bills on a cron schedule.
func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(config.Load().LogLevel, log.ComponentScheduler)
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentScheduler)

	if cfg.RecurringSchedule == "" {
		logger.Error("RECURRING_SCHEDULE is required for the recurring worker")
		os.Exit(1)
	}
	logger.Info("Starting recurring-worker",
		"schedule", cfg.RecurringSchedule,
		"ledger_url", cfg.LedgerURL)

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	trigger := services.NewRemoteTrigger(cfg.LedgerURL, &http.Client{Timeout: 15 * time.Second})
	processor := services.NewRecurringProcessor(trigger, cfg.RecurringSchedule)

	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring processor stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
