package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetkeeper/internal/core"
)

func TestGetMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$4.12", "4.12", true},
		{"4.12", "4.12", true},
		{".12", ".12", true},
		{"Paid 45 bux for turnips.", "45", true},
		{"was only $0.99.", "0.99", true},
		{"costs 3.999 total", "3.99", true},
		{"first $5 then $6", "5", true},
		{"no amount here", "", false},
		{"$", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := GetMoney(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetDescription(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paid for",
			in:   "Paid $14.57 for a book from the used bookstore.",
			want: "A book from the used bookstore.",
		},
		{
			name: "bought amount for",
			in:   "bought 3 for the ORIGINAL Casing",
			want: "The ORIGINAL Casing",
		},
		{
			name: "bare amount for",
			in:   "$12 for lunch",
			want: "Lunch",
		},
		{
			name: "bought description for amount",
			in:   "Bought a new pair of pants for $5. Quite a steal.",
			want: "A new pair of pants. Quite a steal.",
		},
		{
			name: "paid for spanning lines",
			in:   "Paid $5 for a\nbook",
			want: "A\nbook",
		},
		{
			name: "bought for at end",
			in:   "Bought a hat for $3",
			want: "A hat",
		},
		{
			name: "for inside a word is not a separator",
			in:   "Bought stuff forever $3",
			want: "Bought stuff forever $3",
		},
		{
			name: "fallback keeps message",
			in:   "[18:34] <joe> I bought a new widget today, was only $0.99",
			want: "[18:34] <joe> I bought a new widget today, was only $0.99",
		},
		{
			name: "fallback without amount",
			in:   "nothing to see",
			want: "nothing to see",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetDescription(tc.in))
		})
	}
}

func TestSplitClauses(t *testing.T) {
	got := SplitClauses("Paid $14.57 for groceries and paid $50 for booze.")
	assert.Equal(t, []string{"Paid $14.57 for groceries", "paid $50 for booze."}, got)

	assert.Equal(t, []string{"Bought sandwiches for $3"}, SplitClauses("Bought sandwiches for $3"))
	assert.Len(t, SplitClauses("Paid $1 for bread And butter"), 1, "separator is case-sensitive")
	assert.Len(t, SplitClauses("Paid $1 for candy"), 1, "and inside a word is not a separator")
}

func TestParseClause(t *testing.T) {
	p, ok := ParseClause("paid $50 for booze.")
	require.True(t, ok)
	assert.True(t, p.Amount.Equal(core.MustParseMoney("50")))
	assert.Equal(t, "Booze.", p.Description)

	_, ok = ParseClause("hello there")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "groceries", Normalize("Groceries."))
	assert.Equal(t, "abookfromtheusedbookstore", Normalize("A book from the used bookstore."))
	assert.Equal(t, "café_2", Normalize("Café_2!"))
	assert.Equal(t, "", Normalize("?!."))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Booze", Capitalize("booze"))
	assert.Equal(t, "ÉCole", Capitalize("éCole"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, " space", Capitalize(" space"))
}
