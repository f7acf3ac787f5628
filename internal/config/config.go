package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel string

	// Settings file applied to a fresh account at startup
	SeedFile string

	// Inbox journal
	JournalDBPath string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPEventsQueue string
	AMQPInboxQueue  string

	// Mail
	IMAPEnabled      bool
	IMAPServer       string
	IMAPPort         int
	IMAPUseTLS       bool
	IMAPUsername     string
	IMAPPassword     string
	IMAPLabel        string
	IMAPFromAddress  string
	MailPollInterval time.Duration

	// Recurring trigger
	RecurringSchedule string
	LedgerURL         string

	// Event sink used by the ledger worker
	SinkBackend              string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		SeedFile: getEnv("SEED_FILE", ""),

		JournalDBPath: getEnv("JOURNAL_DB_PATH", "./data/inbox.db"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "budgetkeeper"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "transaction_events"),
		AMQPInboxQueue:  getEnv("AMQP_INBOX_QUEUE", "inbox_messages"),

		IMAPEnabled:      getEnvBool("IMAP_ENABLED", false),
		IMAPServer:       getEnv("IMAP_SERVER", ""),
		IMAPPort:         getEnvInt("IMAP_PORT", 993),
		IMAPUseTLS:       getEnvBool("IMAP_USE_TLS", true),
		IMAPUsername:     getEnv("IMAP_USERNAME", ""),
		IMAPPassword:     getEnv("IMAP_PASSWORD", ""),
		IMAPLabel:        getEnv("IMAP_LABEL", "INBOX"),
		IMAPFromAddress:  getEnv("IMAP_FROM_ADDRESS", ""),
		MailPollInterval: getEnvDuration("MAIL_POLL_INTERVAL", 5*time.Minute),

		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "@hourly"),
		LedgerURL:         getEnv("LEDGER_URL", "http://localhost:8081"),

		SinkBackend:              getEnv("SINK_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	// Journal directory must exist or be creatable
	if c.JournalDBPath == "" {
		errors = append(errors, "journal database path cannot be empty")
	} else if dir := filepath.Dir(c.JournalDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create journal database directory '%s': %v", dir, err))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsQueue == "" {
			errors = append(errors, "AMQP events queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPInboxQueue == "" {
			errors = append(errors, "AMQP inbox queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.IMAPEnabled {
		if c.IMAPServer == "" {
			errors = append(errors, "IMAP server is required when IMAP is enabled")
		}
		if c.IMAPPort < 1 || c.IMAPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid IMAP port %d: must be between 1 and 65535", c.IMAPPort))
		}
		if c.IMAPUsername == "" || c.IMAPPassword == "" {
			errors = append(errors, "IMAP username and password are required when IMAP is enabled")
		}
		if c.MailPollInterval < 10*time.Second {
			errors = append(errors, fmt.Sprintf("invalid mail poll interval %v: must be at least 10 seconds", c.MailPollInterval))
		}
	}

	if c.RecurringSchedule != "" {
		if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
		}
	}

	// Validate sink backend
	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SinkBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid sink backend '%s': must be one of %v", c.SinkBackend, validBackends))
	}

	if c.SinkBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// IMAPAddress is host:port for the mail server.
func (c *Config) IMAPAddress() string {
	return c.IMAPServer + ":" + strconv.Itoa(c.IMAPPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
