package ledger

import (
	"sort"
	"time"

	"budgetkeeper/internal/core"
)

// schedule tracks one recurring origin. Occurrence k is anchor + k*interval;
// the origin itself is occurrence 0. Deriving every date from the anchor
// keeps month-end dates from drifting (Jan 31, Feb 29, Mar 31).
type schedule struct {
	origin core.Transaction
	fired  int
}

func newSchedule(origin core.Transaction) *schedule {
	return &schedule{origin: origin}
}

func (s *schedule) next() time.Time {
	return s.origin.Interval.Occurrence(s.origin.Timestamp, s.fired+1)
}

// Due describes the next pending occurrence of a recurring origin.
type Due struct {
	OriginID    string
	Kind        core.Kind
	Description string
	Amount      core.Money
	Next        time.Time
}

// TriggerRecurring materializes every occurrence that is due at or before
// now and returns the new transactions in chronological order. Calling it
// again with the same now is a no-op.
//
// Occurrence k of an origin always gets the same ID, derived from the
// origin ID and k.
func (a *Account) TriggerRecurring(now time.Time) []core.Transaction {
	postings := a.PostRecurring(now)
	created := make([]core.Transaction, len(postings))
	for i, p := range postings {
		created[i] = p.Transaction
	}
	return created
}

// PostRecurring is TriggerRecurring returning the balance after each
// occurrence.
func (a *Account) PostRecurring(now time.Time) []Posting {
	a.mu.Lock()
	defer a.mu.Unlock()

	var created []core.Transaction
	for _, s := range a.schedules {
		for at := s.next(); !at.After(now); at = s.next() {
			s.fired++
			tx := s.origin
			tx.ID = DerivedID(subKey(s.origin.ID, s.fired))
			tx.Timestamp = at
			tx.RecurrenceOf = s.origin.ID
			created = append(created, tx)
		}
	}
	sort.SliceStable(created, func(i, j int) bool {
		return created[i].Timestamp.Before(created[j].Timestamp)
	})

	posted := make([]Posting, 0, len(created))
	for _, tx := range created {
		a.pushLocked(tx)
		posted = append(posted, Posting{Transaction: tx, Balance: a.balance.Quantize()})
	}
	return posted
}

// Upcoming lists the next occurrence of every schedule in insertion order.
func (a *Account) Upcoming() []Due {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Due, 0, len(a.schedules))
	for _, s := range a.schedules {
		out = append(out, Due{
			OriginID:    s.origin.ID,
			Kind:        s.origin.Kind,
			Description: s.origin.Description,
			Amount:      s.origin.Amount,
			Next:        s.next(),
		})
	}
	return out
}
