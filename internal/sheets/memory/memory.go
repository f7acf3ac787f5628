// Package memory is an in-process sink used for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "budgetkeeper/internal/sheets"
)

var _ ports.TransactionWriter = (*Store)(nil)
var _ ports.TransactionLister = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	entries []ports.Entry
	rows    map[string]int
}

func New() *Store {
	return &Store{rows: make(map[string]int)}
}

// Append stores the entry and returns a synthetic row reference. An entry
// whose transaction ID is already stored returns the original reference.
func (s *Store) Append(_ context.Context, e ports.Entry) (string, error) {
	if e.Transaction.ID == "" {
		return "", errors.New("entry has no transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[e.Transaction.ID]; ok {
		return fmt.Sprintf("mem:%d", row), nil
	}
	s.entries = append(s.entries, e)
	s.rows[e.Transaction.ID] = len(s.entries)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// List returns a copy of the stored entries.
func (s *Store) List(_ context.Context) ([]ports.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Entry(nil), s.entries...), nil
}
