// Package mail reads budget messages from an IMAP mailbox.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Message is the part of a mail the ledger cares about: its subject carries
// the text to parse.
type Message struct {
	UID     uint32
	Subject string
	Date    time.Time
}

type Config struct {
	Server   string
	Port     int
	UseTLS   bool
	Username string
	Password string
	// Label is the mailbox to read. Defaults to INBOX.
	Label string
	// FromAddress restricts the search to mail sent by this address.
	FromAddress string
	// Timeout bounds every IMAP command. Defaults to 30s.
	Timeout time.Duration
}

// Fetcher opens one IMAP session per Fetch call.
type Fetcher struct {
	cfg Config
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Server == "" {
		return nil, errors.New("missing IMAP server")
	}
	if cfg.Label == "" {
		cfg.Label = "INBOX"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{cfg: cfg}, nil
}

// Fetch logs in, selects the label read-only and returns every message from
// FromAddress in UID order.
func (f *Fetcher) Fetch(ctx context.Context) ([]Message, error) {
	c, err := f.dial()
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", f.addr(), err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			slog.DebugContext(ctx, "IMAP logout failed", "error", err)
		}
	}()
	c.Timeout = f.cfg.Timeout

	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := c.Select(f.cfg.Label, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", f.cfg.Label, err)
	}

	criteria := imap.NewSearchCriteria()
	if f.cfg.FromAddress != "" {
		criteria.Header.Add("From", f.cfg.FromAddress)
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}, ch)
	}()

	var out []Message
	for msg := range ch {
		if msg.Envelope == nil {
			continue
		}
		out = append(out, Message{UID: msg.Uid, Subject: msg.Envelope.Subject, Date: msg.Envelope.Date})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	slog.InfoContext(ctx, "Fetched mail", "label", f.cfg.Label, "count", len(out))
	return out, nil
}

func (f *Fetcher) dial() (*client.Client, error) {
	dialer := &net.Dialer{Timeout: f.cfg.Timeout}
	if f.cfg.UseTLS {
		return client.DialWithDialerTLS(dialer, f.addr(), nil)
	}
	return client.DialWithDialer(dialer, f.addr())
}

func (f *Fetcher) addr() string {
	return net.JoinHostPort(f.cfg.Server, strconv.Itoa(f.cfg.Port))
}
