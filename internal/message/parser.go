// Package message extracts amounts and descriptions from free-text messages
// such as forwarded mail subjects or chat snippets.
//
// The extraction is heuristic. A miss is reported through an empty result,
// never an error: free text is expected to be unparseable some of the time.
package message

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"budgetkeeper/internal/core"
)

var (
	// moneyToken matches at the start of a token once a leading "$" has been
	// stripped: "45", "4.12", ".12". Trailing punctuation is ignored.
	moneyToken = regexp.MustCompile(`^(?:\d+(?:\.\d{1,2})?|\.\d{1,2})`)

	// paidFor is the clean phrasing: "Paid $14.57 for a book".
	paidFor = regexp.MustCompile(`(?is)^(?:paid |bought )?(.*?) for (.*)$`)

	// boughtFor runs after the amount was cut out: "Bought pants for. Cheap."
	// "for" must end a word, so "forever" is not split.
	boughtFor = regexp.MustCompile(`(?is)bought (.*?) for\b(.*)`)

	// clauseSep splits "Paid $1 for a and paid $2 for b".
	clauseSep = regexp.MustCompile(`\s+and\s+`)
)

// Parsed is one clause turned into an amount and a description.
type Parsed struct {
	Amount      core.Money
	Description string
}

// GetMoney returns the first token, left to right, that starts with an
// amount. The returned string is the literal match ("4.12", ".12"); ok is
// false when no token carries one.
func GetMoney(text string) (string, bool) {
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimPrefix(tok, "$")
		if m := moneyToken.FindString(tok); m != "" {
			return m, true
		}
	}
	return "", false
}

// GetDescription returns the best-effort description for text.
//
//	"Paid $14.57 for a book."                -> "A book."
//	"Bought pants for $5. Quite a steal."    -> "Pants. Quite a steal."
//	"I bought a widget, was only $0.99"      -> unchanged
func GetDescription(text string) string {
	if m := paidFor.FindStringSubmatch(text); m != nil {
		head := strings.TrimPrefix(strings.TrimSpace(m[1]), "$")
		if _, err := core.ParseMoney(head); err == nil {
			return Capitalize(m[2])
		}
	}

	if amount, ok := GetMoney(text); ok {
		cut := regexp.MustCompile(`\s?\$?` + regexp.QuoteMeta(amount))
		stripped := replaceOnce(cut, text, "")
		if m := boughtFor.FindStringSubmatch(stripped); m != nil && (m[1] != "" || m[2] != "") {
			return Capitalize(m[1]) + m[2]
		}
	}

	return text
}

// SplitClauses splits text on the standalone word "and". The separator is
// case-sensitive so "And" at a sentence start is left alone.
func SplitClauses(text string) []string {
	return clauseSep.Split(text, -1)
}

// ParseClause extracts amount and description from a single clause. ok is
// false when the clause carries no amount.
func ParseClause(clause string) (Parsed, bool) {
	raw, ok := GetMoney(clause)
	if !ok {
		return Parsed{}, false
	}
	amount, err := core.ParseMoney(raw)
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{Amount: amount, Description: GetDescription(clause)}, true
}

// Normalize drops every rune that is not a letter, digit or underscore and
// lower-cases the rest. "Groceries." becomes "groceries"; "ice cream" becomes
// "icecream".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Capitalize upper-cases the first rune and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func replaceOnce(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
