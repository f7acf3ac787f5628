package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome   Kind = "income"
	KindPurchase Kind = "purchase"
	KindPaycheck Kind = "paycheck"
	KindBill     Kind = "bill"
)

type (
	Kind string

	Money struct {
		d decimal.Decimal
	}

	Transaction struct {
		ID          string    `json:"id"`
		Kind        Kind      `json:"kind"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		Category    string    `json:"category,omitempty"`
		Timestamp   time.Time `json:"timestamp"`
		// Interval is set only on paychecks and bills.
		Interval     Interval `json:"interval"`
		RecurrenceOf string   `json:"recurrence_of,omitempty"`
	}

	Budget struct {
		Name        string   `json:"name"`
		Interval    Interval `json:"interval"`
		Limit       Money    `json:"limit"`
		Description string   `json:"description,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrEmptyBudgetName = errors.New("empty budget name")
)

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindPurchase, KindPaycheck, KindBill:
		return true
	}
	return false
}

// Direction is +1 for credits (income, paycheck) and -1 for debits
// (purchase, bill). Unknown kinds have no direction.
func (k Kind) Direction() int {
	switch k {
	case KindIncome, KindPaycheck:
		return 1
	case KindPurchase, KindBill:
		return -1
	}
	return 0
}

// Recurring reports whether transactions of this kind carry an interval.
func (k Kind) Recurring() bool {
	return k == KindPaycheck || k == KindBill
}

func (t Transaction) Direction() int {
	return t.Kind.Direction()
}

// SignedAmount is Amount multiplied by Direction.
func (t Transaction) SignedAmount() Money {
	return t.Amount.Mul(t.Direction())
}

func (t Transaction) IsDebit() bool {
	return t.Direction() < 0
}

// InCategory matches the category case-insensitively. An unset category
// matches nothing.
func (t Transaction) InCategory(name string) bool {
	return t.Category != "" && strings.EqualFold(t.Category, name)
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, t.Amount)
	}
	if t.Kind.Recurring() && !t.Interval.Valid() {
		return fmt.Errorf("%w: %s needs an advancing interval", ErrInvalidInterval, t.Kind)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyBudgetName
	}
	if b.Limit.IsNegative() {
		return fmt.Errorf("%w: limit %s is negative", ErrInvalidAmount, b.Limit)
	}
	if !b.Interval.IsZero() && !b.Interval.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidInterval, b.Interval)
	}
	return nil
}
