// Package google exports ledger transactions to a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"budgetkeeper/internal/core"
	ports "budgetkeeper/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	rowTimeLayout = "2006-01-02 15:04:05"
	idColumn      = 6
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu sync.Mutex
	// known maps exported transaction IDs to their row. Nil until the sheet
	// has been read once.
	known   map[string]int
	lastRow int
}

var (
	_ ports.TransactionWriter = (*Client)(nil)
	_ ports.TransactionLister = (*Client)(nil)
)

// Options configures NewFromConfig.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile. With neither set
	// Application Default Credentials are used.
	CredentialsJSON string
	CredentialsFile string
}

// New wraps an existing service. Tests point svc at a local endpoint.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// NewFromConfig creates a Sheets client using service account credentials.
func NewFromConfig(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, opts.SpreadsheetID, opts.SheetName), nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	default:
		slog.InfoContext(ctx, "No service account configured, using application default credentials")
	}

	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Append writes the entry to the next free row. The header row is written
// first when the sheet is empty. Transactions already present in the ID
// column are not written again; their existing reference is returned.
func (c *Client) Append(ctx context.Context, e ports.Entry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.Transaction.ID == "" {
		return "", errors.New("entry has no transaction id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return "", err
	}
	if row, ok := c.known[e.Transaction.ID]; ok {
		return c.rowRef(row), nil
	}

	if c.lastRow == 0 {
		if err := c.updateRow(ctx, 1, ports.Header); err != nil {
			return "", fmt.Errorf("failed to write header in sheet %s: %w", c.sheetName, err)
		}
		c.lastRow = 1
	}

	next := c.lastRow + 1
	if err := c.updateRow(ctx, next, ports.Row(e)); err != nil {
		return "", fmt.Errorf("failed to update row %d in sheet %s: %w", next, c.sheetName, err)
	}
	c.lastRow = next
	c.known[e.Transaction.ID] = next
	return c.rowRef(next), nil
}

// List reads every data row back into entries. Rows that do not parse are
// skipped with a warning.
func (c *Client) List(ctx context.Context) ([]ports.Entry, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []ports.Entry
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		e, err := parseRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable sheet row", "sheet", c.sheetName, "row", i+1, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) loadLocked(ctx context.Context) error {
	if c.known != nil {
		return nil
	}
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	c.known = make(map[string]int, len(rows))
	for i, row := range rows {
		if len(row) > idColumn {
			if id := strings.TrimSpace(fmt.Sprint(row[idColumn])); id != "" && !(i == 0 && isHeader(row)) {
				c.known[id] = i + 1
			}
		}
	}
	c.lastRow = len(rows)
	return nil
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", c.sheetName, err)
	}
	return resp.Values, nil
}

func (c *Client) updateRow(ctx context.Context, row int, cells []string) error {
	values := make([]any, len(cells))
	for i, s := range cells {
		values[i] = s
	}
	rng := c.rowRef(row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *Client) rowRef(row int) string {
	return fmt.Sprintf("%s!A%d:H%d", c.sheetName, row, row)
}

func isHeader(row []any) bool {
	return len(row) > 0 && fmt.Sprint(row[0]) == ports.Header[0]
}

func parseRow(row []any) (ports.Entry, error) {
	cells := make([]string, len(ports.Header))
	for i := range cells {
		if i < len(row) {
			cells[i] = strings.TrimSpace(fmt.Sprint(row[i]))
		}
	}

	ts, err := time.ParseInLocation(rowTimeLayout, cells[0], time.UTC)
	if err != nil {
		return ports.Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	kind, err := core.ParseKind(cells[1])
	if err != nil {
		return ports.Entry{}, err
	}
	signed, err := core.ParseMoney(cells[4])
	if err != nil {
		return ports.Entry{}, fmt.Errorf("amount: %w", err)
	}
	balance, err := core.ParseMoney(cells[5])
	if err != nil {
		return ports.Entry{}, fmt.Errorf("balance: %w", err)
	}
	amount := signed
	if amount.IsNegative() {
		amount = amount.Neg()
	}
	return ports.Entry{
		Transaction: core.Transaction{
			ID:           cells[6],
			Kind:         kind,
			Amount:       amount,
			Description:  cells[2],
			Category:     cells[3],
			Timestamp:    ts,
			RecurrenceOf: cells[7],
		},
		Balance: balance,
	}, nil
}
