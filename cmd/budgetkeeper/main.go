package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budgetkeeper/internal/cli"
	"budgetkeeper/internal/config"
	"budgetkeeper/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "budgetkeeper",
	Short: "Personal ledger with budgets, recurring bills and free-text purchase parsing",
	Long: `budgetkeeper keeps a running balance of incomes, purchases, paychecks and
bills, files purchases under budgets, and turns messages such as
"Paid $14.57 for groceries" into ledger entries.

Configuration comes from the environment (and a .env file when present).
SEED_FILE names a TOML settings file with the budgets and standing
transactions a fresh account starts with.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		loaded, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = cli.SetupLogger(cfg.LogLevel, log.ComponentApp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, parseCmd, triggerCmd, balanceCmd, fetchMailCmd)
}
