// Package storage keeps the inbox journal: a SQLite record of every raw
// message handed to the ledger, used to skip duplicates and to review
// messages nothing could be parsed from. Ledger state itself is never
// stored here.
//
// The ledger lives in memory, so duplicates are only detected within one
// journal session. Each NewJournal call starts a session; a restarted
// process accepts earlier messages again and rebuilds its ledger from them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status of a journaled message.
type Status string

const (
	StatusPending Status = "pending"
	StatusParsed  Status = "parsed"
	StatusMiss    Status = "miss"
	StatusFailed  Status = "failed"
)

// InboxMessage is one journaled message.
type InboxMessage struct {
	ID          int64     `json:"id"`
	Session     string    `json:"session"`
	Source      string    `json:"source"`
	ExternalID  string    `json:"external_id"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	ParsedCount int       `json:"parsed_count"`
	Status      Status    `json:"status"`
}

var ErrNotFound = errors.New("inbox message not found")

type Journal struct {
	db      *sql.DB
	session string
}

// NewJournal opens (creating if needed) the journal database at dbPath and
// applies migrations.
func NewJournal(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// SQLite allows one writer; serializing here avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &Journal{db: db, session: uuid.NewString()}, nil
}

// Session identifies the journal session this Journal records into.
func (j *Journal) Session() string {
	return j.session
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// RecordMessage journals a message. When (source, externalID) was already
// recorded in this session, duplicate is true and id is the earlier row.
func (j *Journal) RecordMessage(ctx context.Context, source, externalID, body string, receivedAt time.Time) (id int64, duplicate bool, err error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO inbox_messages (session, source, external_id, body, received_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session, source, external_id) DO NOTHING`,
		j.session, source, externalID, body, receivedAt.UTC().Format(time.RFC3339Nano), string(StatusPending))
	if err != nil {
		return 0, false, fmt.Errorf("insert inbox message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("last insert id: %w", err)
		}
		return id, false, nil
	}

	err = j.db.QueryRowContext(ctx,
		`SELECT id FROM inbox_messages WHERE session = ? AND source = ? AND external_id = ?`,
		j.session, source, externalID).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup duplicate inbox message: %w", err)
	}
	slog.DebugContext(ctx, "Duplicate inbox message", "source", source, "external_id", externalID, "id", id)
	return id, true, nil
}

// MarkOutcome stores how many transactions a message produced.
func (j *Journal) MarkOutcome(ctx context.Context, id int64, parsedCount int, status Status) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE inbox_messages SET parsed_count = ?, status = ? WHERE id = ?`,
		parsedCount, string(status), id)
	if err != nil {
		return fmt.Errorf("mark inbox message %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark inbox message %d: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns a single journaled message.
func (j *Journal) Get(ctx context.Context, id int64) (InboxMessage, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, session, source, external_id, body, received_at, parsed_count, status
		 FROM inbox_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return InboxMessage{}, ErrNotFound
	}
	return m, err
}

// ListMisses returns the most recent messages nothing was parsed from,
// newest first.
func (j *Journal) ListMisses(ctx context.Context, limit int) ([]InboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session, source, external_id, body, received_at, parsed_count, status
		 FROM inbox_messages WHERE status = ? ORDER BY id DESC LIMIT ?`,
		string(StatusMiss), limit)
	if err != nil {
		return nil, fmt.Errorf("list misses: %w", err)
	}
	defer rows.Close()

	var out []InboxMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountBySource returns the number of journaled messages per source across
// all sessions.
func (j *Journal) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM inbox_messages GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (InboxMessage, error) {
	var (
		m          InboxMessage
		receivedAt string
		status     string
	)
	if err := s.Scan(&m.ID, &m.Session, &m.Source, &m.ExternalID, &m.Body, &receivedAt, &m.ParsedCount, &status); err != nil {
		return InboxMessage{}, fmt.Errorf("scan inbox message: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, receivedAt)
	if err != nil {
		return InboxMessage{}, fmt.Errorf("parse received_at %q: %w", receivedAt, err)
	}
	m.ReceivedAt = ts
	m.Status = Status(status)
	return m, nil
}
