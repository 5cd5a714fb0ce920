// rules/loss.go
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/riskd/lockout"
)

// DailyRealizedLoss flattens and locks the account for the rest of the
// session once realized P&L for the day breaches the configured loss limit.
type DailyRealizedLoss struct {
	cfg DailyRealizedLossConfig
}

func (r *DailyRealizedLoss) ID() string    { return RuleDailyRealizedLoss }
func (r *DailyRealizedLoss) Enabled() bool { return r.cfg.Enabled }

func (r *DailyRealizedLoss) Check(_ context.Context, ev Event, deps Deps) *Breach {
	if ev.Type != EventTrade || r.cfg.Limit <= 0 {
		return nil
	}

	realized := deps.PnL.DailyRealized(ev.AccountID)
	if realized > -r.cfg.Limit {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Action: ActionCloseAll,
		Reason: fmt.Sprintf("daily realized P&L %.2f breached loss limit %.2f", realized, r.cfg.Limit),
		Metric: realized,
		Limit:  -r.cfg.Limit,
	}
}

func (r *DailyRealizedLoss) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	closed := exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason)
	cancelled := exec.CancelAllOrders(ctx, ev.AccountID, r.ID(), breach.Reason)
	locked := exec.ApplyLockout(ctx, lockout.Record{
		AccountID:    ev.AccountID,
		Reason:       breach.Reason,
		RuleID:       r.ID(),
		Kind:         lockout.HardUntil,
		ClearOnReset: true,
		LockedAt:     ev.At,
	})
	return closed == nil && cancelled == nil && locked == nil
}

// DailyUnrealizedLoss closes open positions once their combined mark-to-
// market loss breaches the limit. Locking out is a configuration choice;
// some desks want the trader flat but still able to re-enter.
type DailyUnrealizedLoss struct {
	cfg DailyUnrealizedLossConfig
}

func (r *DailyUnrealizedLoss) ID() string    { return RuleDailyUnrealizedLoss }
func (r *DailyUnrealizedLoss) Enabled() bool { return r.cfg.Enabled }

func (r *DailyUnrealizedLoss) Check(ctx context.Context, ev Event, deps Deps) *Breach {
	if (ev.Type != EventPosition && ev.Type != EventQuote) || r.cfg.Limit <= 0 {
		return nil
	}

	unrealized := deps.PnL.Unrealized(ctx, ev.AccountID)
	if unrealized > -r.cfg.Limit {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Action: ActionCloseAll,
		Reason: fmt.Sprintf("unrealized P&L %.2f breached loss limit %.2f", unrealized, r.cfg.Limit),
		Metric: unrealized,
		Limit:  -r.cfg.Limit,
	}
}

func (r *DailyUnrealizedLoss) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	ok := exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason) == nil
	if r.cfg.Lockout {
		locked := exec.ApplyLockout(ctx, lockout.Record{
			AccountID:    ev.AccountID,
			Reason:       breach.Reason,
			RuleID:       r.ID(),
			Kind:         lockout.HardUntil,
			ClearOnReset: true,
			LockedAt:     ev.At,
		})
		ok = ok && locked == nil
	}
	return ok
}

// MaxUnrealizedProfit locks in gains: once open profit reaches the target
// the account is flattened and locked until the session reset.
type MaxUnrealizedProfit struct {
	cfg MaxUnrealizedProfitConfig
}

func (r *MaxUnrealizedProfit) ID() string    { return RuleMaxUnrealizedProfit }
func (r *MaxUnrealizedProfit) Enabled() bool { return r.cfg.Enabled }

func (r *MaxUnrealizedProfit) Check(ctx context.Context, ev Event, deps Deps) *Breach {
	if (ev.Type != EventPosition && ev.Type != EventQuote) || r.cfg.Target <= 0 {
		return nil
	}

	unrealized := deps.PnL.Unrealized(ctx, ev.AccountID)
	if unrealized < r.cfg.Target {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Action: ActionCloseAll,
		Reason: fmt.Sprintf("unrealized P&L %.2f reached profit target %.2f", unrealized, r.cfg.Target),
		Metric: unrealized,
		Limit:  r.cfg.Target,
	}
}

func (r *MaxUnrealizedProfit) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	closed := exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason)
	locked := exec.ApplyLockout(ctx, lockout.Record{
		AccountID:    ev.AccountID,
		Reason:       breach.Reason,
		RuleID:       r.ID(),
		Kind:         lockout.HardUntil,
		ClearOnReset: true,
		LockedAt:     ev.At,
	})
	return closed == nil && locked == nil
}

// cooldownUntil is a small helper shared by the cooldown-style rules.
func cooldownUntil(at time.Time, d time.Duration) *time.Time {
	t := at.Add(d)
	return &t
}
