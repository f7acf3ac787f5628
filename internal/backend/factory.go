package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "budgetkeeper/internal/sheets/google"
	"budgetkeeper/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new sink factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateSink implements Factory.CreateSink
func (f *DefaultFactory) CreateSink(ctx context.Context, config Config) (*SinkResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsSink:
		return f.createSheetsSink(ctx, config)
	case MemorySink:
		return f.createMemorySink()
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsSink(ctx context.Context, config Config) (*SinkResult, error) {
	cli, err := gsheet.NewFromConfig(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets sink", "sheet", config.GoogleSheetName)
	return &SinkResult{Sink: cli}, nil
}

func (f *DefaultFactory) createMemorySink() (*SinkResult, error) {
	f.logger.Info("Initialized memory sink")
	return &SinkResult{Sink: memory.New()}, nil
}
