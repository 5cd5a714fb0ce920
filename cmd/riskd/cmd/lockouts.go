package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskd/config"
	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/persist"
)

var lockoutsCmd = &cobra.Command{
	Use:   "lockouts",
	Short: "Inspect or clear persisted account lockouts",
	Long: `Operate on the persisted lockout ledger.

Run these with the daemon stopped; they edit the snapshot store directly.

Examples:
  riskd lockouts list --config riskd.yaml
  riskd lockouts clear --config riskd.yaml --account ACCT-123`,
}

var lockoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted lockouts",
	RunE:  runLockoutsList,
}

var lockoutsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear one account's lockout",
	RunE:  runLockoutsClear,
}

var (
	lockoutsConfigPath string
	lockoutsAccount    string
)

func init() {
	rootCmd.AddCommand(lockoutsCmd)
	lockoutsCmd.AddCommand(lockoutsListCmd)
	lockoutsCmd.AddCommand(lockoutsClearCmd)

	lockoutsCmd.PersistentFlags().StringVarP(&lockoutsConfigPath, "config", "f", "", "path to config file (required)")
	lockoutsCmd.MarkPersistentFlagRequired("config")
	lockoutsClearCmd.Flags().StringVarP(&lockoutsAccount, "account", "a", "", "account ID to clear (required)")
	lockoutsClearCmd.MarkFlagRequired("account")
}

// loadLedger opens the snapshot store and reconstructs the ledger from it.
func loadLedger() (*lockout.Ledger, persist.Store, error) {
	cfg, err := config.LoadFromFile(lockoutsConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	snaps, err := persist.NewSQLite(cfg.Storage.SnapshotPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	ledger := lockout.NewLedger()
	data, err := snaps.LoadSnapshot(persist.TableLockouts)
	switch {
	case errors.Is(err, persist.ErrNoSnapshot):
	case err != nil:
		snaps.Close()
		return nil, nil, fmt.Errorf("load lockouts: %w", err)
	default:
		snap, err := lockout.DecodeSnapshot(data)
		if err != nil {
			snaps.Close()
			return nil, nil, fmt.Errorf("decode lockouts: %w", err)
		}
		ledger.Restore(snap)
	}
	return ledger, snaps, nil
}

func runLockoutsList(cmd *cobra.Command, args []string) error {
	ledger, snaps, err := loadLedger()
	if err != nil {
		return err
	}
	defer snaps.Close()

	now := time.Now()
	accounts := ledger.Accounts()
	if len(accounts) == 0 {
		fmt.Println("No lockouts recorded.")
		return nil
	}

	for _, acct := range accounts {
		rec, ok := ledger.Get(acct)
		if !ok {
			continue
		}
		status := "active"
		if !ledger.IsLocked(acct, now) {
			status = "expired"
		}
		expiry := "indefinite"
		if rec.ExpiresAt != nil {
			expiry = rec.ExpiresAt.Local().Format(time.RFC3339)
		} else if rec.ClearOnReset {
			expiry = "session reset"
		}
		fmt.Printf("%-16s %-8s rule=%s until=%s reason=%q\n",
			acct, status, rec.RuleID, expiry, rec.Reason)
	}
	return nil
}

func runLockoutsClear(cmd *cobra.Command, args []string) error {
	ledger, snaps, err := loadLedger()
	if err != nil {
		return err
	}
	defer snaps.Close()

	if !ledger.Clear(lockoutsAccount) {
		fmt.Printf("No lockout recorded for %s.\n", lockoutsAccount)
		return nil
	}

	data, err := ledger.Snapshot().Encode()
	if err != nil {
		return fmt.Errorf("encode lockouts: %w", err)
	}
	if err := snaps.SaveSnapshot(persist.TableLockouts, data); err != nil {
		return fmt.Errorf("save lockouts: %w", err)
	}

	fmt.Printf("✓ Cleared lockout for %s\n", lockoutsAccount)
	return nil
}
