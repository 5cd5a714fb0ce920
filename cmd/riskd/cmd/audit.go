package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskd/journal"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the enforcement audit trail",
	Long: `Query and display enforcement records from the SQLite audit journal.

Subcommands:
  record  - Get details of a specific enforcement by record ID
  account - List enforcements for an account on a given day

Examples:
  riskd audit record <record-id>
  riskd audit account ACCT-123
  riskd audit account ACCT-123 --day 2026-08-28`,
}

var auditRecordCmd = &cobra.Command{
	Use:   "record <record-id>",
	Short: "Get details of a specific enforcement",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditRecord,
}

var auditAccountCmd = &cobra.Command{
	Use:   "account <account-id>",
	Short: "List enforcements for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditAccount,
}

var (
	auditDBPath string
	auditDay    string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecordCmd)
	auditCmd.AddCommand(auditAccountCmd)

	auditCmd.PersistentFlags().StringVarP(&auditDBPath, "db", "d", "./riskd-audit.db", "path to SQLite audit journal")
	auditAccountCmd.Flags().StringVar(&auditDay, "day", "", "day to query, YYYY-MM-DD (default today)")
}

func runAuditRecord(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(auditDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}

	printRecord(rec)
	return nil
}

func runAuditAccount(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(auditDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	loc := time.Local
	day := auditDay
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListByAccount(args[0], start, end)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	if len(recs) == 0 {
		fmt.Printf("No enforcements for %s on %s.\n", args[0], day)
		return nil
	}

	for _, rec := range recs {
		fmt.Printf("%s  %-20s %-10s rule=%s %s\n",
			rec.At.In(loc).Format("15:04:05"), rec.ActionType, rec.Outcome, rec.RuleID, rec.RecordID)
	}
	return nil
}

func printRecord(rec journal.Record) {
	fmt.Printf("Record:  %s\n", rec.RecordID)
	fmt.Printf("At:      %s\n", rec.At.Local().Format(time.RFC3339))
	fmt.Printf("Account: %s\n", rec.AccountID)
	fmt.Printf("Action:  %s\n", rec.ActionType)
	fmt.Printf("Rule:    %s\n", rec.RuleID)
	fmt.Printf("Outcome: %s\n", rec.Outcome)
	fmt.Printf("Reason:  %s\n", rec.Reason)
	if rec.Details != "" {
		fmt.Printf("Details: %s\n", rec.Details)
	}
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
