package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetkeeper/internal/core"
	ports "budgetkeeper/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet serves the two values endpoints the client uses.
type fakeSheet struct {
	mu      sync.Mutex
	rows    [][]any
	gets    int
	updates int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := strings.Index(r.URL.Path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[idx+len("/values/"):]

	switch r.Method {
	case http.MethodGet:
		f.gets++
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.rows})
	case http.MethodPut:
		f.updates++
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Range looks like Sheet!A<n>:H<n>.
		start := strings.Index(rng, "!A") + 2
		end := strings.Index(rng, ":")
		row, err := strconv.Atoi(rng[start:end])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for len(f.rows) < row {
			f.rows = append(f.rows, nil)
		}
		f.rows[row-1] = vr.Values[0]
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng, "updatedRows": 1})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, f *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithoutAuthentication(),
		goption.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return New(svc, "sheet-id", "Transactions")
}

func sampleEntry(id string, kind core.Kind, amount, balance string) ports.Entry {
	return ports.Entry{
		Transaction: core.Transaction{
			ID:          id,
			Kind:        kind,
			Amount:      core.MustParseMoney(amount),
			Description: "Coffee",
			Category:    "Food",
			Timestamp:   time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC),
		},
		Balance: core.MustParseMoney(balance),
	}
}

func TestAppendWritesHeaderAndRows(t *testing.T) {
	f := &fakeSheet{}
	c := newTestClient(t, f)
	ctx := context.Background()

	ref, err := c.Append(ctx, sampleEntry("tx-1", core.KindIncome, "1000", "1000"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:H2", ref)

	ref, err = c.Append(ctx, sampleEntry("tx-2", core.KindPurchase, "4.12", "995.88"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A3:H3", ref)

	require.Len(t, f.rows, 3)
	assert.Equal(t, "Timestamp", f.rows[0][0])
	assert.Equal(t, "-4.12", f.rows[2][4])
	assert.Equal(t, "995.88", f.rows[2][5])
	assert.Equal(t, 1, f.gets, "sheet is read once and then tracked locally")
}

func TestAppendSkipsKnownTransaction(t *testing.T) {
	f := &fakeSheet{rows: [][]any{
		{"Timestamp", "Kind", "Description", "Category", "Amount", "Balance", "ID", "Recurrence Of"},
		{"2024-01-01 08:30:00", "income", "Salary", "", "1000.00", "1000.00", "tx-1", ""},
	}}
	c := newTestClient(t, f)

	ref, err := c.Append(context.Background(), sampleEntry("tx-1", core.KindIncome, "1000", "1000"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:H2", ref)
	assert.Zero(t, f.updates)
}

func TestListParsesRows(t *testing.T) {
	f := &fakeSheet{rows: [][]any{
		{"Timestamp", "Kind", "Description", "Category", "Amount", "Balance", "ID", "Recurrence Of"},
		{"2024-01-01 08:30:00", "income", "Salary", "", "1000.00", "1000.00", "tx-1", ""},
		{"garbage"},
		{"2024-01-02 09:00:00", "purchase", "Coffee", "Food", "-4.12", "995.88", "tx-2"},
	}}
	c := newTestClient(t, f)

	entries, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, core.KindIncome, entries[0].Transaction.Kind)
	assert.True(t, entries[1].Transaction.Amount.Equal(core.MustParseMoney("4.12")))
	assert.True(t, entries[1].Balance.Equal(core.MustParseMoney("995.88")))
	assert.Equal(t, "Food", entries[1].Transaction.Category)
	assert.Empty(t, entries[1].Transaction.RecurrenceOf)
}

func TestAppendRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.Append(context.Background(), sampleEntry("tx-1", core.KindIncome, "1", "1"))
	require.Error(t, err)
}

func TestNewFromConfigMissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), Options{})
	require.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")
}
