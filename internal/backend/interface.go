// Package backend builds the transaction sink the ledger worker writes to.
package backend

import (
	"context"

	"budgetkeeper/internal/sheets"
)

// Sink receives exported ledger entries.
type Sink interface {
	sheets.TransactionWriter
	sheets.TransactionLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SinkResult contains the sink instance and optional cleanup function
type SinkResult struct {
	Sink    Sink
	Cleanup CleanupFunc
}

// Factory creates sinks based on configuration
type Factory interface {
	CreateSink(ctx context.Context, config Config) (*SinkResult, error)
}

// Config holds configuration for sink creation
type Config struct {
	Type SinkType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// SinkType represents the type of sink
type SinkType string

const (
	SheetsSink SinkType = "sheets"
	MemorySink SinkType = "memory"
)

func (st SinkType) String() string {
	return string(st)
}

// IsValid returns true if the sink type is valid
func (st SinkType) IsValid() bool {
	switch st {
	case SheetsSink, MemorySink:
		return true
	default:
		return false
	}
}
