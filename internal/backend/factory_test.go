package backend

import (
	"context"
	"testing"

	"budgetkeeper/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{SinkBackend: "sheets", GoogleSpreadsheetID: "id", GoogleSheetName: "Tx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SheetsSink || cfg.GoogleSpreadsheetID != "id" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{SinkBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown sink")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemorySink}, false},
		{"sheets complete", Config{Type: SheetsSink, GoogleSpreadsheetID: "id", GoogleSheetName: "Tx"}, false},
		{"sheets without id", Config{Type: SheetsSink, GoogleSheetName: "Tx"}, true},
		{"sheets without name", Config{Type: SheetsSink, GoogleSpreadsheetID: "id"}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemorySink(t *testing.T) {
	res, err := NewFactory(nil).CreateSink(context.Background(), Config{Type: MemorySink})
	if err != nil {
		t.Fatalf("CreateSink error: %v", err)
	}
	if res.Sink == nil {
		t.Fatal("expected sink")
	}
	if res.Cleanup != nil {
		t.Error("memory sink needs no cleanup")
	}
}
