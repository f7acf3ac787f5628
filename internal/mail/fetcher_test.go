package mail

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs an in-memory IMAP server holding one message from
// contact@example.org.
func startServer(t *testing.T) (host string, port int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := server.New(memory.New())
	s.AllowInsecureAuth = true
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	h, p, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return h, port
}

func TestFetchFromAddress(t *testing.T) {
	host, port := startServer(t)
	f, err := NewFetcher(Config{
		Server:      host,
		Port:        port,
		Username:    "username",
		Password:    "password",
		FromAddress: "contact@example.org",
	})
	require.NoError(t, err)

	msgs, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint32(6), msgs[0].UID)
	assert.Equal(t, "A little message, just for you", msgs[0].Subject)
	assert.Equal(t, 2016, msgs[0].Date.Year())
}

func TestFetchNoMatches(t *testing.T) {
	host, port := startServer(t)
	f, err := NewFetcher(Config{
		Server:      host,
		Port:        port,
		Username:    "username",
		Password:    "password",
		FromAddress: "nobody@example.org",
	})
	require.NoError(t, err)

	msgs, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFetchBadLogin(t *testing.T) {
	host, port := startServer(t)
	f, err := NewFetcher(Config{Server: host, Port: port, Username: "username", Password: "wrong"})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.ErrorContains(t, err, "login")
}

func TestNewFetcherDefaults(t *testing.T) {
	_, err := NewFetcher(Config{})
	require.Error(t, err)

	f, err := NewFetcher(Config{Server: "imap.example.org", Port: 993})
	require.NoError(t, err)
	assert.Equal(t, "INBOX", f.cfg.Label)
	assert.Equal(t, "imap.example.org:993", f.addr())
}
