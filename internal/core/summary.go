package core

import "time"

// BudgetStatus is one row of a budget report.
type BudgetStatus struct {
	Name     string   `json:"name"`
	Interval Interval `json:"interval"`
	Limit    Money    `json:"limit"`
	// Spent covers every debit in the category since the ledger began.
	Spent Money `json:"spent"`
	// PeriodSpent covers debits after PeriodStart.
	PeriodSpent Money     `json:"period_spent"`
	PeriodStart time.Time `json:"period_start"`
	Remaining   Money     `json:"remaining"`
}

// Over reports whether the current period exceeded the limit.
func (s BudgetStatus) Over() bool {
	return s.Remaining.IsNegative()
}

// PeriodStart returns the start of the budget period ending at now. Budgets
// without an interval span the whole ledger.
func PeriodStart(iv Interval, now time.Time) time.Time {
	if !iv.Valid() {
		return time.Time{}
	}
	return Interval{Years: -iv.Years, Months: -iv.Months, Days: -iv.Days}.AddTo(now)
}
