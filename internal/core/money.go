// Package core provides the ledger's value types: money, intervals,
// transactions and budgets.
//
// This file contains the exact decimal Money type. Amounts are never held as
// binary floats; rounding happens only through Quantize, which uses
// round-half-even on the second decimal place.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places committed ledger amounts carry.
const CentPlaces = 2

// Zero is the zero amount.
var Zero = Money{}

// ParseMoney converts a decimal literal to Money without rounding.
//
// Surrounding whitespace is ignored. Anything decimal.NewFromString rejects
// yields ErrInvalidAmount.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney("4.125")  -> 4.125, nil (kept at full precision)
//	ParseMoney(".12")    -> 0.12, nil
//	ParseMoney("abc")    -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money{d: d}, nil
}

// MustParseMoney is like ParseMoney but panics on error. Intended for
// constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoney builds Money from a numeric or string literal.
// Supported inputs: string, int, int32, int64, float32, float64,
// decimal.Decimal and Money.
func NewMoney(v any) (Money, error) {
	switch x := v.(type) {
	case Money:
		return x, nil
	case decimal.Decimal:
		return Money{d: x}, nil
	case string:
		return ParseMoney(x)
	case int:
		return Money{d: decimal.NewFromInt(int64(x))}, nil
	case int32:
		return Money{d: decimal.NewFromInt32(x)}, nil
	case int64:
		return Money{d: decimal.NewFromInt(x)}, nil
	case float32:
		return NewMoney(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, x)
		}
		return Money{d: decimal.NewFromFloat(x)}, nil
	default:
		return Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// Decimal exposes the underlying exact value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// Mul multiplies by a signed unit such as a transaction direction.
func (m Money) Mul(unit int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(unit)))}
}

func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Quantize rounds to CentPlaces using round-half-even (4.125 -> 4.12,
// 4.135 -> 4.14).
func (m Money) Quantize() Money {
	return Money{d: m.d.RoundBank(CentPlaces)}
}

func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal compares values, ignoring trailing zeros (5 == 5.00).
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// String renders the exact value.
func (m Money) String() string {
	return m.d.String()
}

// StringFixed renders the quantized value with exactly two decimals.
func (m Money) StringFixed() string {
	return m.d.RoundBank(CentPlaces).StringFixed(CentPlaces)
}

// MarshalJSON encodes Money as a quoted decimal string so no precision is
// lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.d.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds amounts at full precision.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
