package backend

import (
	"fmt"

	"budgetkeeper/internal/config"
)

// FromAppConfig converts the application config to sink config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sinkType := SinkType(appConfig.SinkBackend)
	if !sinkType.IsValid() {
		return Config{}, fmt.Errorf("invalid sink type in config: %s", appConfig.SinkBackend)
	}

	return Config{
		Type: sinkType,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the sink configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid sink type: %s", c.Type)
	}

	if c.Type == SheetsSink {
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets sink")
		}
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets sink")
		}
	}

	return nil
}

// SinkTypes returns all valid sink types
func SinkTypes() []SinkType {
	return []SinkType{SheetsSink, MemorySink}
}
