// Package cli provides common initialization shared by the budgetkeeper
// commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/config"
	"budgetkeeper/internal/ledger"
	"budgetkeeper/internal/log"
	"budgetkeeper/internal/storage"
)

// SetupLogger creates the process logger at the given LOG_LEVEL and sets it
// as the slog default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewAccount creates an empty account and applies the seed file when one is
// configured.
func NewAccount(logger *log.Logger, cfg *config.Config) (*ledger.Account, error) {
	account := ledger.NewAccount()
	if cfg.SeedFile == "" {
		return account, nil
	}
	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(account); err != nil {
		return nil, fmt.Errorf("apply seed %s: %w", cfg.SeedFile, err)
	}
	logger.Info("Applied seed file",
		"path", cfg.SeedFile,
		"budgets", len(account.Budgets()),
		"transactions", len(account.Transactions()))
	return account, nil
}

// InitJournal opens the inbox journal at path.
func InitJournal(logger *log.Logger, path string) (*storage.Journal, error) {
	journal, err := storage.NewJournal(path)
	if err != nil {
		return nil, fmt.Errorf("open inbox journal %s: %w", path, err)
	}
	logger.Info("Inbox journal ready", "path", path, "session", journal.Session())
	return journal, nil
}

// InitAMQP connects to the broker when AMQP_URL is set. It returns nil
// without error when AMQP is disabled or unreachable, so callers can run
// without messaging.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - transactions will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventsQueue, cfg.AMQPInboxQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without messaging", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"events_queue", cfg.AMQPEventsQueue,
		"inbox_queue", cfg.AMQPInboxQueue)
	return client
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received")
		}
	}()
	return ctx, stop
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
