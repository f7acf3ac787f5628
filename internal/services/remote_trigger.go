package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budgetkeeper/internal/core"
)

// RemoteTrigger calls the recurring trigger endpoint of a running ledger
// server.
type RemoteTrigger struct {
	baseURL string
	client  *http.Client
}

func NewRemoteTrigger(baseURL string, client *http.Client) *RemoteTrigger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteTrigger{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// TriggerRecurring posts now to {baseURL}/recurring/trigger and decodes the
// materialized transactions.
func (r *RemoteTrigger) TriggerRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	body, err := json.Marshal(map[string]time.Time{"now": now})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/recurring/trigger", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ledger returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Transactions, nil
}
