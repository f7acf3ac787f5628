package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"budgetkeeper/internal/core"
)

// Trigger materializes due recurring transactions.
type Trigger interface {
	TriggerRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error)
}

// RecurringProcessor runs a Trigger on a cron schedule.
type RecurringProcessor struct {
	trigger  Trigger
	schedule string
	now      func() time.Time
}

// NewRecurringProcessor creates a processor for a standard five-field cron
// expression or a descriptor such as "@hourly".
func NewRecurringProcessor(trigger Trigger, schedule string) *RecurringProcessor {
	return &RecurringProcessor{trigger: trigger, schedule: schedule, now: time.Now}
}

// ProcessDue runs the trigger once and returns how many transactions it
// created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.trigger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	now := p.now()
	txs, err := p.trigger.TriggerRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("trigger recurring: %w", err)
	}
	slog.InfoContext(ctx, "Recurring processing complete",
		"created", len(txs),
		"processing_time", now.Format(time.RFC3339))
	return len(txs), nil
}

// Run processes once on startup, then on every scheduled tick until ctx is
// cancelled. It waits for a running job to finish before returning.
func (p *RecurringProcessor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() {
		if _, err := p.ProcessDue(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled recurring processing failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid recurring schedule %q: %w", p.schedule, err)
	}

	slog.InfoContext(ctx, "Running initial recurring processing", "schedule", p.schedule)
	if _, err := p.ProcessDue(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial recurring processing failed", "error", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("Recurring processor stopped")
	return nil
}
