package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budgetkeeper/internal/cli"
	"budgetkeeper/internal/config"
	"budgetkeeper/internal/core"
	"budgetkeeper/internal/ledger"
	"budgetkeeper/internal/mail"
	"budgetkeeper/internal/services"
)

var (
	parseAt   string
	triggerAt string
	asJSON    bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <text...>",
	Short: "Parse a message against the seeded account and print the purchases it creates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := cli.NewAccount(logger, cfg)
		if err != nil {
			return err
		}
		var opts []ledger.TxOption
		if parseAt != "" {
			ts, err := config.ParseTimestamp(parseAt)
			if err != nil {
				return err
			}
			opts = append(opts, ledger.WithTimestamp(ts))
		}
		created := account.ParseMessage(strings.Join(args, " "), opts...)
		if len(created) == 0 && !asJSON {
			fmt.Fprintln(cmd.OutOrStdout(), "no purchases found")
			return nil
		}
		return printTransactions(cmd.OutOrStdout(), created, account.Balance())
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Materialize recurring paychecks and bills due by --at (default now)",
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := cli.NewAccount(logger, cfg)
		if err != nil {
			return err
		}
		now := time.Now()
		if triggerAt != "" {
			if now, err = config.ParseTimestamp(triggerAt); err != nil {
				return err
			}
		}
		svc := services.NewLedgerService(account)
		created, err := svc.TriggerRecurring(cmd.Context(), now)
		if err != nil {
			return err
		}
		return printTransactions(cmd.OutOrStdout(), created, account.Balance())
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the seeded account's balance and budget totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := cli.NewAccount(logger, cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			totals := make(map[string]string)
			for name, m := range account.BudgetTotals() {
				totals[name] = m.StringFixed()
			}
			return json.NewEncoder(out).Encode(map[string]any{
				"balance": account.Balance().StringFixed(),
				"totals":  totals,
				"budgets": account.BudgetReport(time.Now()),
			})
		}

		fmt.Fprintf(out, "Balance: %s\n", account.Balance().StringFixed())
		report := account.BudgetReport(time.Now())
		if len(report) == 0 {
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BUDGET\tINTERVAL\tLIMIT\tPERIOD\tREMAINING\tALL TIME")
		for _, b := range report {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				b.Name, b.Interval, b.Limit.StringFixed(), b.PeriodSpent.StringFixed(),
				b.Remaining.StringFixed(), b.Spent.StringFixed())
		}
		return tw.Flush()
	},
}

var fetchMailCmd = &cobra.Command{
	Use:   "fetch-mail",
	Short: "Fetch budget mail once and print the subjects that would be ingested",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := mail.NewFetcher(mailConfig())
		if err != nil {
			return err
		}
		msgs, err := fetcher.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return json.NewEncoder(out).Encode(msgs)
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "%d\t%s\t%s\n", m.UID, m.Date.Format(time.RFC3339), m.Subject)
		}
		return nil
	},
}

func printTransactions(out io.Writer, txs []core.Transaction, balance core.Money) error {
	if asJSON {
		if txs == nil {
			txs = []core.Transaction{}
		}
		return json.NewEncoder(out).Encode(map[string]any{
			"transactions": txs,
			"balance":      balance.StringFixed(),
		})
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.Timestamp.Format("2006-01-02"), tx.Kind, tx.SignedAmount().StringFixed(), tx.Category, tx.Description)
	}
	fmt.Fprintf(tw, "\nBalance:\t%s\n", balance.StringFixed())
	return tw.Flush()
}

func init() {
	parseCmd.Flags().StringVar(&parseAt, "at", "", "timestamp for the parsed purchases (RFC 3339 or YYYY-MM-DD)")
	triggerCmd.Flags().StringVar(&triggerAt, "at", "", "trigger time (RFC 3339 or YYYY-MM-DD)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
}
