package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"budgetkeeper/internal/cache"
	"budgetkeeper/internal/mail"
)

// MailFetcher lists candidate budget mails.
type MailFetcher interface {
	Fetch(ctx context.Context) ([]mail.Message, error)
}

// Ingester accepts one message for parsing.
type Ingester interface {
	Ingest(ctx context.Context, msg Message) (IngestResult, error)
}

// seenUIDs bounds how many handled UIDs a poller remembers. Older UIDs fall
// back to the journal's duplicate check.
const seenUIDs = 4096

// MailPoller feeds mail subjects into the ledger. Recently handled UIDs are
// skipped locally; the journal rejects anything older as a duplicate.
type MailPoller struct {
	fetcher  MailFetcher
	ingester Ingester
	interval time.Duration

	mu   sync.Mutex
	seen *cache.LRU[uint32, struct{}]
}

func NewMailPoller(fetcher MailFetcher, ingester Ingester, interval time.Duration) *MailPoller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MailPoller{
		fetcher:  fetcher,
		ingester: ingester,
		interval: interval,
		seen:     cache.NewLRU[uint32, struct{}](seenUIDs, 7*24*time.Hour),
	}
}

// PollOnce fetches mail and ingests every new subject. It returns the number
// of transactions created.
func (p *MailPoller) PollOnce(ctx context.Context) (int, error) {
	msgs, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	created := 0
	for _, m := range msgs {
		if p.seen.Contains(m.UID) {
			continue
		}
		res, err := p.ingester.Ingest(ctx, Message{
			Source:     "imap",
			ExternalID: strconv.FormatUint(uint64(m.UID), 10),
			Text:       m.Subject,
			ReceivedAt: m.Date,
		})
		if errors.Is(err, ErrEmptyText) {
			p.seen.Set(m.UID, struct{}{})
			continue
		}
		if err != nil {
			slog.WarnContext(ctx, "Failed to ingest mail", "uid", m.UID, "error", err)
			continue
		}
		p.seen.Set(m.UID, struct{}{})
		created += len(res.Transactions)
	}
	return created, nil
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *MailPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.PollOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "Mail poll failed", "error", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "Mail poll complete", "created", n)
		}

		select {
		case <-ctx.Done():
			slog.Info("Mail poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}
