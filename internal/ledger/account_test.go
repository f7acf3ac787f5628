package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetkeeper/internal/core"
)

var jan1 = time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)

func money(s string) core.Money {
	return core.MustParseMoney(s)
}

// newTestAccount returns an account with a fixed clock and sequential IDs.
func newTestAccount(now time.Time) *Account {
	n := 0
	return NewAccount(
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		}),
	)
}

func TestNewAccountIsEmpty(t *testing.T) {
	a := NewAccount()
	assert.Empty(t, a.Transactions())
	assert.Empty(t, a.Budgets())
	assert.True(t, a.Balance().IsZero())
}

func TestAccountWalkthrough(t *testing.T) {
	a := newTestAccount(jan1)

	income, err := a.AddIncome(money("100.00"), "Gift from Grandma", WithTimestamp(jan1))
	require.NoError(t, err)
	assert.Equal(t, core.KindIncome, income.Kind)
	assert.Equal(t, "100.00", a.Balance().StringFixed())

	_, err = a.AddPurchase(money("4.12"), "Morning Coffee")
	require.NoError(t, err)

	bill, err := a.AddBill(money("100.00"), "Internet", core.Monthly, WithTimestamp(jan1))
	require.NoError(t, err)
	assert.Equal(t, core.Monthly, bill.Interval)

	_, err = a.AddPaycheck(money("1000.00"), "Paycheck from WebApps Inc.", core.Bimonthly)
	require.NoError(t, err)

	_, err = a.AddBudget("Groceries", core.Monthly, money("100"), "Monthly grocery allowance.")
	require.NoError(t, err)

	assert.Equal(t, "995.88", a.Balance().StringFixed())
	assert.Len(t, a.Transactions(), 4)
}

func TestAddBill(t *testing.T) {
	a := newTestAccount(jan1)
	bill, err := a.AddBill(money("100"), "Electricity", core.Monthly)
	require.NoError(t, err)

	assert.True(t, bill.Amount.Equal(money("100.00")))
	assert.Equal(t, "Electricity", bill.Description)
	assert.Equal(t, core.Monthly, bill.Interval)
	assert.Equal(t, jan1, bill.Timestamp)
	assert.Contains(t, a.Transactions(), bill)
	assert.Equal(t, "-100.00", a.Balance().StringFixed(), "bill counts before any recurrence")
}

func TestAddPaycheckAffectsBalanceImmediately(t *testing.T) {
	a := newTestAccount(jan1)
	_, err := a.AddPaycheck(money("1000"), "Salary", core.Biweekly)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", a.Balance().StringFixed())
}

func TestPurchaseIsQuantizedHalfEven(t *testing.T) {
	a := newTestAccount(jan1)
	p, err := a.AddPurchase(money("4.125"), "coffee")
	require.NoError(t, err)
	assert.Equal(t, "4.12", p.Amount.String())

	p, err = a.AddPurchase(money("4.135"), "coffee")
	require.NoError(t, err)
	assert.Equal(t, "4.14", p.Amount.String())
}

func TestIncomeKeepsFullPrecision(t *testing.T) {
	a := newTestAccount(jan1)
	in, err := a.AddIncome(money("0.005"), "dust")
	require.NoError(t, err)
	assert.Equal(t, "0.005", in.Amount.String())

	_, err = a.AddIncome(money("0.005"), "dust")
	require.NoError(t, err)
	assert.Equal(t, "0.01", a.Balance().StringFixed(), "rounding happens only on the aggregate")
}

func TestAddRejectsNegativeAmounts(t *testing.T) {
	a := newTestAccount(jan1)
	neg := money("-1")

	_, err := a.AddIncome(neg, "x")
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	_, err = a.AddPurchase(neg, "x")
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	_, err = a.AddBill(neg, "x", core.Monthly)
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	_, err = a.AddPaycheck(neg, "x", core.Monthly)
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	assert.Empty(t, a.Transactions())
}

func TestAddRecurringRejectsBadInterval(t *testing.T) {
	a := newTestAccount(jan1)
	_, err := a.AddBill(money("10"), "x", core.Interval{})
	assert.ErrorIs(t, err, core.ErrInvalidInterval)
	_, err = a.AddPaycheck(money("10"), "x", core.Interval{Days: -7})
	assert.ErrorIs(t, err, core.ErrInvalidInterval)
	assert.Empty(t, a.Transactions())
	assert.Empty(t, a.Upcoming())
}

func TestBalanceIsOrderIndependent(t *testing.T) {
	ops := []func(a *Account){
		func(a *Account) { _, _ = a.AddIncome(money("250.10"), "") },
		func(a *Account) { _, _ = a.AddPurchase(money("19.99"), "") },
		func(a *Account) { _, _ = a.AddBill(money("75.005"), "", core.Monthly) },
		func(a *Account) { _, _ = a.AddPaycheck(money("1200"), "", core.Biweekly) },
	}
	forward := newTestAccount(jan1)
	for _, op := range ops {
		op(forward)
	}
	backward := newTestAccount(jan1)
	for i := len(ops) - 1; i >= 0; i-- {
		ops[i](backward)
	}
	assert.Equal(t, forward.Balance().StringFixed(), backward.Balance().StringFixed())
	assert.Equal(t, "1355.10", forward.Balance().StringFixed())
}

func TestBudgetTotals(t *testing.T) {
	a := newTestAccount(jan1)
	_, err := a.AddBudget("Thing", core.Interval{}, money("100"), "")
	require.NoError(t, err)
	_, err = a.AddBudget("Empty", core.Monthly, money("10"), "")
	require.NoError(t, err)

	_, err = a.AddPurchase(money("100"), "Morning Coffee", WithCategory("Thing"))
	require.NoError(t, err)
	_, err = a.AddBill(money("20"), "Thing subscription", core.Monthly, WithCategory("thing"))
	require.NoError(t, err)
	_, err = a.AddIncome(money("500"), "refund", WithCategory("Thing"))
	require.NoError(t, err)

	totals := a.BudgetTotals()
	require.Len(t, totals, 2)
	assert.Equal(t, "120.00", totals["Thing"].StringFixed(), "credits never count")
	assert.Equal(t, "0.00", totals["Empty"].StringFixed())
}

func TestAddBudgetValidation(t *testing.T) {
	a := newTestAccount(jan1)
	_, err := a.AddBudget(" ", core.Monthly, money("1"), "")
	assert.ErrorIs(t, err, core.ErrEmptyBudgetName)
	_, err = a.AddBudget("Food", core.Monthly, money("-1"), "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, a.Budgets())
}

func TestBudgetReport(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	a := newTestAccount(now)
	_, err := a.AddBudget("Food", core.Monthly, money("300"), "")
	require.NoError(t, err)

	_, err = a.AddPurchase(money("50"), "old", WithCategory("Food"), WithTimestamp(now.AddDate(0, -2, 0)))
	require.NoError(t, err)
	_, err = a.AddPurchase(money("120.50"), "recent", WithCategory("food"), WithTimestamp(now.AddDate(0, 0, -5)))
	require.NoError(t, err)
	_, err = a.AddPurchase(money("9"), "future", WithCategory("Food"), WithTimestamp(now.AddDate(0, 0, 1)))
	require.NoError(t, err)

	report := a.BudgetReport(now)
	require.Len(t, report, 1)
	r := report[0]
	assert.Equal(t, "Food", r.Name)
	assert.Equal(t, "179.50", r.Spent.StringFixed())
	assert.Equal(t, "120.50", r.PeriodSpent.StringFixed())
	assert.Equal(t, "179.50", r.Remaining.StringFixed())
	assert.Equal(t, time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC), r.PeriodStart)
	assert.False(t, r.Over())
}

func TestAccessorsReturnCopies(t *testing.T) {
	a := newTestAccount(jan1)
	_, err := a.AddPurchase(money("1"), "a")
	require.NoError(t, err)
	_, err = a.AddBudget("A", core.Monthly, money("1"), "")
	require.NoError(t, err)

	txs := a.Transactions()
	txs[0].Description = "changed"
	budgets := a.Budgets()
	budgets[0].Name = "changed"

	assert.Equal(t, "a", a.Transactions()[0].Description)
	assert.Equal(t, "A", a.Budgets()[0].Name)
}

func TestDefaultIDsAreUnique(t *testing.T) {
	a := NewAccount()
	first, err := a.AddIncome(money("1"), "")
	require.NoError(t, err)
	second, err := a.AddIncome(money("1"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAccountConcurrentUse(t *testing.T) {
	a := NewAccount()
	_, err := a.AddBudget("Coffee", core.Monthly, money("100"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = a.AddIncome(money("2"), "")
		}()
		go func() {
			defer wg.Done()
			a.ParseMessage("Paid $1 for coffee")
		}()
		go func() {
			defer wg.Done()
			_ = a.Balance()
			_ = a.BudgetTotals()
		}()
	}
	wg.Wait()

	assert.Len(t, a.Transactions(), 100)
	assert.Equal(t, "50.00", a.Balance().StringFixed())
	assert.Equal(t, "50.00", a.BudgetTotals()["Coffee"].StringFixed())
}

func TestPostReturnsBalanceAfterTransaction(t *testing.T) {
	a := newTestAccount(jan1)
	p, err := a.Post(core.KindIncome, money("100"), "Gift", core.Monthly)
	require.NoError(t, err)
	assert.Equal(t, "100.00", p.Balance.StringFixed())
	assert.True(t, p.Transaction.Interval.IsZero(), "interval only applies to recurring kinds")

	p, err = a.Post(core.KindPurchase, money("4.125"), "Coffee", core.Interval{})
	require.NoError(t, err)
	assert.Equal(t, "4.12", p.Transaction.Amount.String())
	assert.Equal(t, "95.88", p.Balance.StringFixed())

	_, err = a.Post(core.Kind("refund"), money("1"), "", core.Interval{})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
	assert.Len(t, a.Transactions(), 2)
}

func TestPostingBalancesUnderConcurrency(t *testing.T) {
	a := NewAccount()
	const workers, each = 20, 50

	var (
		mu       sync.Mutex
		balances = make(map[string]int)
		wg       sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				var got []Posting
				if i%2 == 0 {
					p, err := a.Post(core.KindPurchase, money("1"), "", core.Interval{})
					if !assert.NoError(t, err) {
						return
					}
					got = []Posting{p}
				} else {
					got = a.PostMessage("Paid $1 for gum")
				}
				mu.Lock()
				for _, p := range got {
					balances[p.Balance.StringFixed()]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := workers * each
	require.Len(t, balances, total, "every posting reports a distinct balance")
	for n := 1; n <= total; n++ {
		assert.Equal(t, 1, balances[fmt.Sprintf("-%d.00", n)])
	}
	assert.Equal(t, fmt.Sprintf("-%d.00", total), a.Balance().StringFixed())
}

func TestWithIDKeyIsStableAcrossAccounts(t *testing.T) {
	first := NewAccount()
	second := NewAccount()

	a, err := first.AddIncome(money("1"), "", WithIDKey("seed/income/0"))
	require.NoError(t, err)
	b, err := second.AddIncome(money("1"), "", WithIDKey("seed/income/0"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, DerivedID("seed/income/0"), a.ID)

	fromFirst := first.ParseMessage("Paid $1 for gum and paid $2 for soda", WithIDKey("imap:42"))
	fromSecond := second.ParseMessage("Paid $1 for gum and paid $2 for soda", WithIDKey("imap:42"))
	require.Len(t, fromFirst, 2)
	require.Len(t, fromSecond, 2)
	assert.NotEqual(t, fromFirst[0].ID, fromFirst[1].ID)
	assert.Equal(t, fromFirst[0].ID, fromSecond[0].ID)
	assert.Equal(t, fromFirst[1].ID, fromSecond[1].ID)
}
