package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"budgetkeeper/internal/core"
	"budgetkeeper/internal/ledger"
)

// Seed is the settings file describing budgets and standing transactions a
// fresh account starts with. It is read once at startup and never written.
type Seed struct {
	Budgets   []SeedBudget      `mapstructure:"budgets"`
	Incomes   []SeedTransaction `mapstructure:"incomes"`
	Paychecks []SeedTransaction `mapstructure:"paychecks"`
	Bills     []SeedTransaction `mapstructure:"bills"`
	Purchases []SeedTransaction `mapstructure:"purchases"`
}

type SeedBudget struct {
	Name        string `mapstructure:"name"`
	Interval    string `mapstructure:"interval"`
	Limit       string `mapstructure:"limit"`
	Description string `mapstructure:"description"`
}

// SeedTransaction amounts are strings so TOML floats never pass through
// float64 on the way in; bare numbers are accepted and converted.
type SeedTransaction struct {
	Amount      string `mapstructure:"amount"`
	Description string `mapstructure:"description"`
	Category    string `mapstructure:"category"`
	Interval    string `mapstructure:"interval"`
	Timestamp   string `mapstructure:"timestamp"`
}

// LoadSeed reads a TOML seed file.
func LoadSeed(path string) (*Seed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := v.Unmarshal(&seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}
	return &seed, nil
}

// Apply registers budgets first, then incomes, paychecks, bills and
// purchases, each in file order. It stops at the first invalid entry.
func (s *Seed) Apply(acc *ledger.Account) error {
	for i, b := range s.Budgets {
		limit := core.Zero
		if strings.TrimSpace(b.Limit) != "" {
			var err error
			if limit, err = core.ParseMoney(b.Limit); err != nil {
				return fmt.Errorf("budget %d (%s): %w", i, b.Name, err)
			}
		}
		var interval core.Interval
		if strings.TrimSpace(b.Interval) != "" {
			var err error
			if interval, err = core.ParseInterval(b.Interval); err != nil {
				return fmt.Errorf("budget %d (%s): %w", i, b.Name, err)
			}
		}
		if _, err := acc.AddBudget(b.Name, interval, limit, b.Description); err != nil {
			return fmt.Errorf("budget %d: %w", i, err)
		}
	}

	groups := []struct {
		kind core.Kind
		txs  []SeedTransaction
	}{
		{core.KindIncome, s.Incomes},
		{core.KindPaycheck, s.Paychecks},
		{core.KindBill, s.Bills},
		{core.KindPurchase, s.Purchases},
	}
	for _, g := range groups {
		for i, st := range g.txs {
			if err := applyTransaction(acc, g.kind, i, st); err != nil {
				return fmt.Errorf("%s %d: %w", g.kind, i, err)
			}
		}
	}
	return nil
}

// applyTransaction keys the ID on kind and file position so a restart with
// the same seed reproduces the same transaction IDs.
func applyTransaction(acc *ledger.Account, kind core.Kind, index int, st SeedTransaction) error {
	amount, err := core.ParseMoney(st.Amount)
	if err != nil {
		return err
	}
	opts := []ledger.TxOption{ledger.WithIDKey(fmt.Sprintf("seed/%s/%d", kind, index))}
	if st.Category != "" {
		opts = append(opts, ledger.WithCategory(st.Category))
	}
	if st.Timestamp != "" {
		ts, err := ParseTimestamp(st.Timestamp)
		if err != nil {
			return err
		}
		opts = append(opts, ledger.WithTimestamp(ts))
	}

	switch kind {
	case core.KindIncome:
		_, err = acc.AddIncome(amount, st.Description, opts...)
	case core.KindPurchase:
		_, err = acc.AddPurchase(amount, st.Description, opts...)
	case core.KindPaycheck, core.KindBill:
		interval, perr := core.ParseInterval(st.Interval)
		if perr != nil {
			return perr
		}
		if kind == core.KindBill {
			_, err = acc.AddBill(amount, st.Description, interval, opts...)
		} else {
			_, err = acc.AddPaycheck(amount, st.Description, interval, opts...)
		}
	}
	return err
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 or a plain date. Values without a zone
// are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 or YYYY-MM-DD", s)
}
