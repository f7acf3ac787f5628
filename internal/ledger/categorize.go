package ledger

import (
	"strings"

	"budgetkeeper/internal/core"
	"budgetkeeper/internal/message"
)

// ParseMessage turns free text into purchases. The text is split into
// clauses on the word "and"; every clause carrying an amount becomes one
// purchase, clauses without one are skipped. An empty result means nothing
// in the text was parseable.
//
// A WithCategory option applies only to purchases no budget matched.
func (a *Account) ParseMessage(text string, opts ...TxOption) []core.Transaction {
	postings := a.PostMessage(text, opts...)
	created := make([]core.Transaction, len(postings))
	for i, p := range postings {
		created[i] = p.Transaction
	}
	return created
}

// PostMessage is ParseMessage returning the balance after each purchase.
func (a *Account) PostMessage(text string, opts ...TxOption) []Posting {
	var base txOptions
	for _, opt := range opts {
		opt(&base)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	posted := []Posting{}
	for i, clause := range message.SplitClauses(text) {
		parsed, ok := message.ParseClause(clause)
		if !ok {
			continue
		}
		category, description := a.categorizeLocked(parsed.Description)
		clauseOpts := append([]TxOption(nil), opts...)
		if category != "" {
			clauseOpts = append(clauseOpts, WithCategory(category))
		}
		if base.idKey != "" {
			clauseOpts = append(clauseOpts, WithIDKey(subKey(base.idKey, i)))
		}
		tx, err := a.appendLocked(core.KindPurchase, parsed.Amount.Quantize(), description, core.Interval{}, clauseOpts)
		if err != nil {
			// Only a negative amount can fail here and the parser never
			// yields one.
			continue
		}
		posted = append(posted, Posting{Transaction: tx, Balance: a.balance.Quantize()})
	}
	return posted
}

// categorizeLocked is a plain substring test of the lower-cased budget name
// against the normalized description. The first budget wins. A description
// that is nothing but the budget name is dropped.
func (a *Account) categorizeLocked(description string) (string, string) {
	normalized := message.Normalize(description)
	for _, b := range a.budgets {
		name := strings.ToLower(b.Name)
		if !strings.Contains(normalized, name) {
			continue
		}
		if normalized == name {
			return b.Name, ""
		}
		return b.Name, description
	}
	return "", description
}
