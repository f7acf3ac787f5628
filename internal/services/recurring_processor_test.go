package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetkeeper/internal/core"
)

func TestProcessDue(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount()
	svc := NewLedgerService(account)
	_, err := svc.RecordBill(ctx, core.MustParseMoney("100"), "Rent", core.Monthly)
	require.NoError(t, err)

	p := NewRecurringProcessor(svc, "@hourly")
	p.now = func() time.Time { return time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC) }

	n, err := p.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = p.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessDueWithoutTrigger(t *testing.T) {
	_, err := NewRecurringProcessor(nil, "@hourly").ProcessDue(context.Background())
	require.Error(t, err)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	err := NewRecurringProcessor(NewLedgerService(newTestAccount()), "every tuesday").Run(context.Background())
	require.ErrorContains(t, err, "invalid recurring schedule")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRecurringProcessor(NewLedgerService(newTestAccount()), "@every 1h").Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestRemoteTrigger(t *testing.T) {
	now := time.Date(2012, 2, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recurring/trigger", r.URL.Path)

		var body struct {
			Now time.Time `json:"now"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, now.Equal(body.Now))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactions": []core.Transaction{{ID: "tx-2", Kind: core.KindBill, Amount: core.MustParseMoney("100"), RecurrenceOf: "tx-1"}},
		})
	}))
	defer srv.Close()

	txs, err := NewRemoteTrigger(srv.URL+"/", nil).TriggerRecurring(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].RecurrenceOf)
}

func TestRemoteTriggerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRemoteTrigger(srv.URL, srv.Client()).TriggerRecurring(context.Background(), time.Now())
	require.ErrorContains(t, err, "500")
}
