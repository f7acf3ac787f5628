package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/sheets"
)

// EventWorker copies recorded transactions from the events queue into a sink.
type EventWorker struct {
	sink sheets.TransactionWriter
}

func NewEventWorker(sink sheets.TransactionWriter) *EventWorker {
	return &EventWorker{sink: sink}
}

// HandleTransactionRecorded appends one event to the sink. Sinks skip
// transactions they already hold, so redelivery is safe.
func (w *EventWorker) HandleTransactionRecorded(ctx context.Context, ev *amqp.TransactionRecorded) error {
	if ev == nil || ev.Transaction.ID == "" {
		return errors.New("event has no transaction")
	}

	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", ev.EventID,
		"tx_id", ev.Transaction.ID,
		"tx_kind", ev.Transaction.Kind)

	ref, err := w.sink.Append(ctx, sheets.Entry{Transaction: ev.Transaction, Balance: ev.Balance})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export transaction",
			"tx_id", ev.Transaction.ID,
			"error", err)
		return fmt.Errorf("append transaction %s: %w", ev.Transaction.ID, err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"tx_id", ev.Transaction.ID,
		"ref", ref)
	return nil
}
