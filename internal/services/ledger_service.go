// Package services coordinates the ledger with its adapters: the inbox
// journal, the event publisher and the schedulers that drive them.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/core"
	"budgetkeeper/internal/ledger"
	"budgetkeeper/internal/storage"
)

// Journal records inbound messages and their outcome.
type Journal interface {
	RecordMessage(ctx context.Context, source, externalID, body string, receivedAt time.Time) (id int64, duplicate bool, err error)
	MarkOutcome(ctx context.Context, id int64, parsedCount int, status storage.Status) error
	ListMisses(ctx context.Context, limit int) ([]storage.InboxMessage, error)
	Get(ctx context.Context, id int64) (storage.InboxMessage, error)
	CountBySource(ctx context.Context) (map[string]int, error)
}

// Publisher announces recorded transactions.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, queue string, ev *amqp.TransactionRecorded) error
}

// Message is one free-text message to ingest.
type Message struct {
	Source     string
	ExternalID string
	Text       string
	ReceivedAt time.Time
}

// IngestResult describes what Ingest did with a message.
type IngestResult struct {
	Transactions []core.Transaction
	Duplicate    bool
}

var (
	ErrNoJournal = errors.New("inbox journal not configured")
	ErrEmptyText = errors.New("message has no text")
)

// LedgerService orchestrates ledger operations across the journal and AMQP.
type LedgerService struct {
	account     *ledger.Account
	journal     Journal
	publisher   Publisher
	eventsQueue string
}

type ServiceOption func(*LedgerService)

func WithJournal(j Journal) ServiceOption {
	return func(s *LedgerService) { s.journal = j }
}

// WithPublisher publishes one TransactionRecorded event per new transaction
// to queue.
func WithPublisher(p Publisher, queue string) ServiceOption {
	return func(s *LedgerService) {
		s.publisher = p
		s.eventsQueue = queue
	}
}

func NewLedgerService(account *ledger.Account, opts ...ServiceOption) *LedgerService {
	s := &LedgerService{account: account}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Account exposes the wrapped ledger for read operations.
func (s *LedgerService) Account() *ledger.Account {
	return s.account
}

// Ingest journals the message, parses it into purchases and publishes the
// results. A message already journaled under the same source and external
// ID in this journal session is skipped. Messages without an external ID
// are never treated as duplicates.
//
// Journaled messages key their transaction IDs on source and external ID,
// so re-ingesting a message after a restart reproduces the same IDs and
// exports downstream stay deduplicated.
func (s *LedgerService) Ingest(ctx context.Context, msg Message) (IngestResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return IngestResult{}, ErrEmptyText
	}
	if msg.Source == "" {
		msg.Source = "api"
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	var journalID int64
	if s.journal != nil && msg.ExternalID != "" {
		id, duplicate, err := s.journal.RecordMessage(ctx, msg.Source, msg.ExternalID, msg.Text, msg.ReceivedAt)
		if err != nil {
			return IngestResult{}, fmt.Errorf("journal message: %w", err)
		}
		if duplicate {
			slog.InfoContext(ctx, "Skipping duplicate message",
				"source", msg.Source,
				"external_id", msg.ExternalID)
			return IngestResult{Duplicate: true, Transactions: []core.Transaction{}}, nil
		}
		journalID = id
	}

	opts := []ledger.TxOption{ledger.WithTimestamp(msg.ReceivedAt)}
	if journalID != 0 {
		opts = append(opts, ledger.WithIDKey(msg.Source+":"+msg.ExternalID))
	}
	postings := s.account.PostMessage(msg.Text, opts...)
	txs := transactions(postings)
	publishErr := s.publish(ctx, postings)

	if journalID != 0 {
		status := storage.StatusParsed
		switch {
		case len(txs) == 0:
			status = storage.StatusMiss
		case publishErr != nil:
			status = storage.StatusFailed
		}
		if err := s.journal.MarkOutcome(ctx, journalID, len(txs), status); err != nil {
			slog.ErrorContext(ctx, "Failed to record message outcome",
				"journal_id", journalID,
				"error", err)
		}
	}

	if len(txs) == 0 {
		slog.InfoContext(ctx, "Message produced no transactions",
			"source", msg.Source,
			"external_id", msg.ExternalID)
	} else {
		slog.InfoContext(ctx, "Message ingested",
			"source", msg.Source,
			"external_id", msg.ExternalID,
			"parsed_count", len(txs))
	}
	return IngestResult{Transactions: txs}, nil
}

// Record appends a transaction of any kind. Interval is required for bills
// and paychecks and ignored otherwise.
func (s *LedgerService) Record(ctx context.Context, kind core.Kind, amount core.Money, description string, interval core.Interval, opts ...ledger.TxOption) (core.Transaction, error) {
	p, err := s.account.Post(kind, amount, description, interval, opts...)
	if err != nil {
		return core.Transaction{}, err
	}
	_ = s.publish(ctx, []ledger.Posting{p})
	return p.Transaction, nil
}

func (s *LedgerService) RecordIncome(ctx context.Context, amount core.Money, description string, opts ...ledger.TxOption) (core.Transaction, error) {
	return s.Record(ctx, core.KindIncome, amount, description, core.Interval{}, opts...)
}

func (s *LedgerService) RecordPurchase(ctx context.Context, amount core.Money, description string, opts ...ledger.TxOption) (core.Transaction, error) {
	return s.Record(ctx, core.KindPurchase, amount, description, core.Interval{}, opts...)
}

func (s *LedgerService) RecordBill(ctx context.Context, amount core.Money, description string, interval core.Interval, opts ...ledger.TxOption) (core.Transaction, error) {
	return s.Record(ctx, core.KindBill, amount, description, interval, opts...)
}

func (s *LedgerService) RecordPaycheck(ctx context.Context, amount core.Money, description string, interval core.Interval, opts ...ledger.TxOption) (core.Transaction, error) {
	return s.Record(ctx, core.KindPaycheck, amount, description, interval, opts...)
}

// TriggerRecurring materializes every occurrence due at or before now and
// publishes the new transactions.
func (s *LedgerService) TriggerRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	postings := s.account.PostRecurring(now)
	txs := transactions(postings)
	if len(txs) > 0 {
		slog.InfoContext(ctx, "Materialized recurring transactions",
			"count", len(txs),
			"now", now.Format(time.RFC3339))
	}
	_ = s.publish(ctx, postings)
	return txs, nil
}

// Misses lists journaled messages that produced no transaction.
func (s *LedgerService) Misses(ctx context.Context, limit int) ([]storage.InboxMessage, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	return s.journal.ListMisses(ctx, limit)
}

// InboxMessage returns one journaled message.
func (s *LedgerService) InboxMessage(ctx context.Context, id int64) (storage.InboxMessage, error) {
	if s.journal == nil {
		return storage.InboxMessage{}, ErrNoJournal
	}
	return s.journal.Get(ctx, id)
}

// InboxStats counts journaled messages per source.
func (s *LedgerService) InboxStats(ctx context.Context) (map[string]int, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	return s.journal.CountBySource(ctx)
}

// publish sends one event per posting, carrying the balance the ledger
// reported when it appended that transaction. Failures are logged, never
// undo the ledger change and are returned joined.
func (s *LedgerService) publish(ctx context.Context, postings []ledger.Posting) error {
	if s.publisher == nil || len(postings) == 0 {
		return nil
	}
	var errs []error
	for _, p := range postings {
		ev := amqp.NewTransactionRecorded(p.Transaction, p.Balance)
		if err := s.publisher.PublishTransactionRecorded(ctx, s.eventsQueue, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"tx_id", p.Transaction.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("publish %s: %w", p.Transaction.ID, err))
		}
	}
	return errors.Join(errs...)
}

func transactions(postings []ledger.Posting) []core.Transaction {
	out := make([]core.Transaction, len(postings))
	for i, p := range postings {
		out[i] = p.Transaction
	}
	return out
}
