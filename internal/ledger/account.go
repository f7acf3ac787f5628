// Package ledger holds the in-memory Account: the ordered list of
// transactions and budgets, the recurrence schedules and the free-text
// ingestion entry point.
package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetkeeper/internal/core"
)

// Account is safe for concurrent use. Every exported method takes the same
// mutex, so reads always see a consistent snapshot.
type Account struct {
	mu sync.Mutex

	now   func() time.Time
	newID func() string

	transactions []core.Transaction
	budgets      []core.Budget
	schedules    []*schedule

	// balance is the unrounded sum of signed amounts, kept in step with
	// transactions.
	balance core.Money
}

// Posting is a transaction together with the account balance right after it
// was appended.
type Posting struct {
	Transaction core.Transaction
	Balance     core.Money
}

// idNamespace scopes IDs derived by WithIDKey and by recurrences.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("budgetkeeper/transaction"))

// DerivedID returns the transaction ID WithIDKey(key) assigns.
func DerivedID(key string) string {
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// Option configures an Account.
type Option func(*Account)

// WithClock replaces time.Now as the source of default timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Account) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator replaces the uuid-based transaction ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *Account) {
		if gen != nil {
			a.newID = gen
		}
	}
}

func NewAccount(opts ...Option) *Account {
	a := &Account{
		now:     time.Now,
		newID:   uuid.NewString,
		balance: core.Zero,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TxOption sets optional fields on a new transaction.
type TxOption func(*txOptions)

type txOptions struct {
	timestamp time.Time
	category  string
	idKey     string
}

// WithTimestamp sets the transaction time. For bills and paychecks it is
// also the anchor of the recurrence schedule.
func WithTimestamp(ts time.Time) TxOption {
	return func(o *txOptions) { o.timestamp = ts }
}

func WithCategory(category string) TxOption {
	return func(o *txOptions) { o.category = strings.TrimSpace(category) }
}

// WithIDKey derives the transaction ID from key instead of generating a
// random one, so the same input gets the same ID in every process. Keys
// must be unique within an account. ParseMessage suffixes the key with the
// clause index.
func WithIDKey(key string) TxOption {
	return func(o *txOptions) { o.idKey = key }
}

func (a *Account) AddIncome(amount core.Money, description string, opts ...TxOption) (core.Transaction, error) {
	p, err := a.Post(core.KindIncome, amount, description, core.Interval{}, opts...)
	return p.Transaction, err
}

// AddPurchase records a debit. The amount is quantized to cents here and
// nowhere else.
func (a *Account) AddPurchase(amount core.Money, description string, opts ...TxOption) (core.Transaction, error) {
	p, err := a.Post(core.KindPurchase, amount, description, core.Interval{}, opts...)
	return p.Transaction, err
}

// AddBill records a recurring debit. The first occurrence counts against the
// balance immediately; later ones are materialized by TriggerRecurring.
func (a *Account) AddBill(amount core.Money, description string, interval core.Interval, opts ...TxOption) (core.Transaction, error) {
	p, err := a.Post(core.KindBill, amount, description, interval, opts...)
	return p.Transaction, err
}

// AddPaycheck records a recurring credit, symmetric to AddBill.
func (a *Account) AddPaycheck(amount core.Money, description string, interval core.Interval, opts ...TxOption) (core.Transaction, error) {
	p, err := a.Post(core.KindPaycheck, amount, description, interval, opts...)
	return p.Transaction, err
}

// Post appends a transaction of any kind and returns it with the balance
// right after it. Interval is required for bills and paychecks and ignored
// otherwise.
func (a *Account) Post(kind core.Kind, amount core.Money, description string, interval core.Interval, opts ...TxOption) (Posting, error) {
	if !kind.Valid() {
		return Posting{}, fmt.Errorf("add %s: %w", kind, core.ErrInvalidKind)
	}
	if kind == core.KindPurchase {
		amount = amount.Quantize()
	}
	if !kind.Recurring() {
		interval = core.Interval{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	tx, err := a.appendLocked(kind, amount, description, interval, opts)
	if err != nil {
		return Posting{}, fmt.Errorf("add %s: %w", kind, err)
	}
	if kind.Recurring() {
		a.schedules = append(a.schedules, newSchedule(tx))
	}
	return Posting{Transaction: tx, Balance: a.balance.Quantize()}, nil
}

// AddBudget registers a budget category. Names are not required to be
// unique; categorization picks the first match in insertion order.
func (a *Account) AddBudget(name string, interval core.Interval, limit core.Money, description string) (core.Budget, error) {
	b := core.Budget{
		Name:        strings.TrimSpace(name),
		Interval:    interval,
		Limit:       limit,
		Description: description,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("add budget: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.budgets = append(a.budgets, b)
	return b, nil
}

// Balance is the sum of signed amounts, quantized to cents.
func (a *Account) Balance() core.Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance.Quantize()
}

// BudgetTotals sums, per budget, every debit whose category matches the
// budget name. Totals are all-time and quantized; a budget with no matching
// debits reports zero.
func (a *Account) BudgetTotals() map[string]core.Money {
	a.mu.Lock()
	defer a.mu.Unlock()
	totals := make(map[string]core.Money, len(a.budgets))
	for _, b := range a.budgets {
		totals[b.Name] = a.spentLocked(b.Name, time.Time{}, time.Time{}).Quantize()
	}
	return totals
}

// BudgetReport returns one status per budget in insertion order. The current
// period is the interval ending at now.
func (a *Account) BudgetReport(now time.Time) []core.BudgetStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.BudgetStatus, 0, len(a.budgets))
	for _, b := range a.budgets {
		start := core.PeriodStart(b.Interval, now)
		period := a.spentLocked(b.Name, start, now).Quantize()
		out = append(out, core.BudgetStatus{
			Name:        b.Name,
			Interval:    b.Interval,
			Limit:       b.Limit,
			Spent:       a.spentLocked(b.Name, time.Time{}, time.Time{}).Quantize(),
			PeriodSpent: period,
			PeriodStart: start,
			Remaining:   b.Limit.Sub(period).Quantize(),
		})
	}
	return out
}

// Transactions returns a copy of the ledger in insertion order.
func (a *Account) Transactions() []core.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Transaction(nil), a.transactions...)
}

// Budgets returns a copy of the budgets in insertion order.
func (a *Account) Budgets() []core.Budget {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Budget(nil), a.budgets...)
}

// spentLocked sums debits in category within (from, to]. Zero bounds are
// open.
func (a *Account) spentLocked(category string, from, to time.Time) core.Money {
	total := core.Zero
	for _, tx := range a.transactions {
		if !tx.IsDebit() || !tx.InCategory(category) {
			continue
		}
		if !from.IsZero() && !tx.Timestamp.After(from) {
			continue
		}
		if !to.IsZero() && tx.Timestamp.After(to) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

func (a *Account) appendLocked(kind core.Kind, amount core.Money, description string, interval core.Interval, opts []TxOption) (core.Transaction, error) {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.timestamp.IsZero() {
		o.timestamp = a.now()
	}
	var id string
	if o.idKey != "" {
		id = DerivedID(o.idKey)
	} else {
		id = a.newID()
	}
	tx := core.Transaction{
		ID:          id,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Category:    o.category,
		Timestamp:   o.timestamp,
		Interval:    interval,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	a.pushLocked(tx)
	return tx, nil
}

func (a *Account) pushLocked(tx core.Transaction) {
	a.transactions = append(a.transactions, tx)
	a.balance = a.balance.Add(tx.SignedAmount())
}

func subKey(key string, i int) string {
	return key + "/" + strconv.Itoa(i)
}
