package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetkeeper/internal/core"
)

// InboxMessage is a free-text message delivered for ingestion, such as a
// chat snippet relayed by a bot.
type InboxMessage struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// TransactionRecorded announces one transaction appended to the ledger,
// together with the balance right after it.
type TransactionRecorded struct {
	EventID     string           `json:"event_id"`
	Transaction core.Transaction `json:"transaction"`
	Balance     core.Money       `json:"balance"`
	RecordedAt  time.Time        `json:"recorded_at"`
}

var ErrEmptyText = errors.New("inbox message has no text")

func NewTransactionRecorded(tx core.Transaction, balance core.Money) *TransactionRecorded {
	return &TransactionRecorded{
		EventID:     uuid.NewString(),
		Transaction: tx,
		Balance:     balance,
		RecordedAt:  time.Now().UTC(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *InboxMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InboxMessageFromJSON decodes and validates an inbox message. A missing
// source defaults to "amqp".
func InboxMessageFromJSON(data []byte) (*InboxMessage, error) {
	var msg InboxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, ErrEmptyText
	}
	if msg.Source == "" {
		msg.Source = "amqp"
	}
	return &msg, nil
}
