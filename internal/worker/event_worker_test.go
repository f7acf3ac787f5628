package worker

import (
	"context"
	"errors"
	"testing"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/core"
	"budgetkeeper/internal/sheets"
	"budgetkeeper/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(context.Context, sheets.Entry) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleTransactionRecorded(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := NewEventWorker(store)

	tx := core.Transaction{ID: "tx-1", Kind: core.KindPurchase, Amount: core.MustParseMoney("4.12")}
	ev := amqp.NewTransactionRecorded(tx, core.MustParseMoney("995.88"))

	require.NoError(t, w.HandleTransactionRecorded(ctx, ev))
	require.NoError(t, w.HandleTransactionRecorded(ctx, ev), "redelivery is accepted")

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tx-1", entries[0].Transaction.ID)
	assert.True(t, entries[0].Balance.Equal(core.MustParseMoney("995.88")))
}

func TestHandleTransactionRecordedErrors(t *testing.T) {
	ctx := context.Background()

	err := NewEventWorker(memory.New()).HandleTransactionRecorded(ctx, &amqp.TransactionRecorded{})
	require.Error(t, err)

	tx := core.Transaction{ID: "tx-1", Kind: core.KindIncome}
	err = NewEventWorker(failingSink{}).HandleTransactionRecorded(ctx, amqp.NewTransactionRecorded(tx, core.Zero))
	require.ErrorContains(t, err, "quota exceeded")
}
