package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "data", "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordMessageDeduplicates(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, dup, err := j.RecordMessage(ctx, "imap", "42", "Paid $3 for gum", at)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotZero(t, id)

	again, dup, err := j.RecordMessage(ctx, "imap", "42", "Paid $3 for gum", at)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, id, again)

	other, dup, err := j.RecordMessage(ctx, "amqp", "42", "Paid $3 for gum", at)
	require.NoError(t, err)
	assert.False(t, dup, "dedupe is per source")
	assert.NotEqual(t, id, other)

	m, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, m.Status)
	assert.Equal(t, "Paid $3 for gum", m.Body)
	assert.True(t, at.Equal(m.ReceivedAt))
}

func TestMarkOutcomeAndListMisses(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)
	now := time.Now()

	parsed, _, err := j.RecordMessage(ctx, "http", "a", "Paid $1 for x", now)
	require.NoError(t, err)
	miss1, _, err := j.RecordMessage(ctx, "http", "b", "hello", now)
	require.NoError(t, err)
	miss2, _, err := j.RecordMessage(ctx, "imap", "c", "newsletter", now)
	require.NoError(t, err)

	require.NoError(t, j.MarkOutcome(ctx, parsed, 1, StatusParsed))
	require.NoError(t, j.MarkOutcome(ctx, miss1, 0, StatusMiss))
	require.NoError(t, j.MarkOutcome(ctx, miss2, 0, StatusMiss))

	misses, err := j.ListMisses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, misses, 2)
	assert.Equal(t, miss2, misses[0].ID, "newest first")
	assert.Equal(t, miss1, misses[1].ID)

	limited, err := j.ListMisses(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	m, err := j.Get(ctx, parsed)
	require.NoError(t, err)
	assert.Equal(t, StatusParsed, m.Status)
	assert.Equal(t, 1, m.ParsedCount)
}

func TestMarkOutcomeUnknownID(t *testing.T) {
	j := newTestJournal(t)
	err := j.MarkOutcome(context.Background(), 999, 0, StatusMiss)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = j.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountBySource(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)
	for i, src := range []string{"imap", "imap", "amqp"} {
		_, _, err := j.RecordMessage(ctx, src, string(rune('a'+i)), "body", time.Now())
		require.NoError(t, err)
	}
	counts, err := j.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"imap": 2, "amqp": 1}, counts)
}

func TestReopenedJournalStartsNewSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inbox.db")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	j, err := NewJournal(path)
	require.NoError(t, err)
	firstSession := j.Session()
	first, dup, err := j.RecordMessage(ctx, "imap", "42", "Paid $10 for lunch", at)
	require.NoError(t, err)
	require.False(t, dup)
	require.NoError(t, j.MarkOutcome(ctx, first, 0, StatusMiss))
	require.NoError(t, j.Close())

	j, err = NewJournal(path)
	require.NoError(t, err)
	defer j.Close()
	assert.NoError(t, j.Ping(ctx))
	assert.NotEqual(t, firstSession, j.Session())

	second, dup, err := j.RecordMessage(ctx, "imap", "42", "Paid $10 for lunch", at)
	require.NoError(t, err)
	assert.False(t, dup, "a new process must be able to rebuild its ledger")
	assert.NotEqual(t, first, second)

	_, dup, err = j.RecordMessage(ctx, "imap", "42", "Paid $10 for lunch", at)
	require.NoError(t, err)
	assert.True(t, dup)

	old, err := j.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, firstSession, old.Session)

	misses, err := j.ListMisses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, misses, 1, "history from earlier sessions stays reviewable")
	assert.Equal(t, first, misses[0].ID)

	counts, err := j.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"imap": 2}, counts)
}
