// Package sheets defines the outbound ports for exporting ledger
// transactions to a spreadsheet-like sink.
package sheets

import (
	"context"

	"budgetkeeper/internal/core"
)

// Entry is one exported ledger row.
type Entry struct {
	Transaction core.Transaction
	// Balance is the account balance right after the transaction.
	Balance core.Money
}

// Ports for outbound adapters.
type (
	// TransactionWriter appends entries. Implementations skip transaction
	// IDs they already hold so redelivered events do not duplicate rows.
	TransactionWriter interface {
		Append(ctx context.Context, e Entry) (rowRef string, err error)
	}

	// TransactionLister returns every exported entry in append order.
	TransactionLister interface {
		List(ctx context.Context) ([]Entry, error)
	}
)

// Header is the column layout shared by every sink.
var Header = []string{"Timestamp", "Kind", "Description", "Category", "Amount", "Balance", "ID", "Recurrence Of"}

// Row renders an entry in Header order. Amounts are signed and fixed to two
// decimals.
func Row(e Entry) []string {
	tx := e.Transaction
	return []string{
		tx.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		string(tx.Kind),
		tx.Description,
		tx.Category,
		tx.SignedAmount().StringFixed(),
		e.Balance.StringFixed(),
		tx.ID,
		tx.RecurrenceOf,
	}
}
