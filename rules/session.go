// rules/session.go
package rules

import (
	"context"
	"fmt"

	"github.com/rustyeddy/riskd/lockout"
)

// SessionBlock flattens and locks an account holding positions outside the
// configured trading session or on a holiday. The lockout expires at the
// next session open.
type SessionBlock struct {
	cfg SessionBlockConfig
}

func (r *SessionBlock) ID() string    { return RuleSessionBlock }
func (r *SessionBlock) Enabled() bool { return r.cfg.Enabled }

func (r *SessionBlock) Check(_ context.Context, ev Event, deps Deps) *Breach {
	if ev.Type != EventPosition && ev.Type != EventTick {
		return nil
	}
	if deps.Calendar.InSession(ev.At) {
		return nil
	}
	if len(deps.Store.Positions(ev.AccountID)) == 0 {
		return nil
	}

	reason := "position held outside trading session"
	if deps.Calendar.IsHoliday(ev.At) {
		reason = "position held on a holiday"
	}
	return &Breach{
		RuleID: r.ID(),
		Action: ActionCloseAll,
		Reason: reason,
	}
}

func (r *SessionBlock) Enforce(ctx context.Context, exec Executor, ev Event, deps Deps, breach Breach) bool {
	closed := exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason)

	until := deps.Calendar.NextSessionStart(ev.At)
	locked := exec.ApplyLockout(ctx, lockout.Record{
		AccountID: ev.AccountID,
		Reason:    breach.Reason,
		RuleID:    r.ID(),
		Kind:      lockout.HardUntil,
		ExpiresAt: &until,
		LockedAt:  ev.At,
	})
	return closed == nil && locked == nil
}

// AuthGuard reacts to the venue disabling trading for the account: flatten
// everything and hold an indefinite lockout that only clears when the venue
// reports the account restored.
type AuthGuard struct {
	cfg AuthGuardConfig
}

func (r *AuthGuard) ID() string    { return RuleAuthGuard }
func (r *AuthGuard) Enabled() bool { return r.cfg.Enabled }

func (r *AuthGuard) Check(_ context.Context, ev Event, _ Deps) *Breach {
	if ev.Type != EventStatus || ev.Status == nil {
		return nil
	}
	if ev.Status.CanTrade {
		return nil
	}

	reason := "venue reports trading disabled"
	if ev.Status.Reason != "" {
		reason = fmt.Sprintf("venue reports trading disabled: %s", ev.Status.Reason)
	}
	return &Breach{
		RuleID: r.ID(),
		Action: ActionCloseAll,
		Reason: reason,
	}
}

func (r *AuthGuard) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	closed := exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason)
	cancelled := exec.CancelAllOrders(ctx, ev.AccountID, r.ID(), breach.Reason)
	// Indefinite: no expiry, not cleared by the daily reset. Only the
	// router clears it, on a restoring account-status event.
	locked := exec.ApplyLockout(ctx, lockout.Record{
		AccountID: ev.AccountID,
		Reason:    breach.Reason,
		RuleID:    r.ID(),
		Kind:      lockout.HardUntil,
		LockedAt:  ev.At,
	})
	return closed == nil && cancelled == nil && locked == nil
}

// SymbolBlocks keeps an account out of instruments on the blocked list:
// cancel its orders, close its position, and record a permanent per-symbol
// lock.
type SymbolBlocks struct {
	cfg SymbolBlocksConfig
}

func (r *SymbolBlocks) ID() string    { return RuleSymbolBlocks }
func (r *SymbolBlocks) Enabled() bool { return r.cfg.Enabled }

func (r *SymbolBlocks) isBlocked(root string) bool {
	for _, b := range r.cfg.Blocked {
		if b == root {
			return true
		}
	}
	return false
}

func (r *SymbolBlocks) Check(ctx context.Context, ev Event, deps Deps) *Breach {
	var contractID string
	switch ev.Type {
	case EventPosition:
		if ev.Position != nil {
			contractID = ev.Position.ContractID
		}
	case EventOrder:
		if ev.Order != nil {
			contractID = ev.Order.ContractID
		}
	}
	if contractID == "" {
		return nil
	}

	root := deps.SymbolRoot(ctx, contractID)
	if !r.isBlocked(root) && !deps.Ledger.IsSymbolLocked(ev.AccountID, root) {
		return nil
	}

	breach := &Breach{
		RuleID:     r.ID(),
		Action:     ActionCancelClose,
		Reason:     fmt.Sprintf("instrument %s is on the blocked list", root),
		ContractID: contractID,
	}
	if ev.Type == EventOrder && ev.Order != nil {
		breach.OrderID = ev.Order.OrderID
	}
	return breach
}

func (r *SymbolBlocks) Enforce(ctx context.Context, exec Executor, ev Event, deps Deps, breach Breach) bool {
	ok := true
	if breach.OrderID != "" {
		ok = exec.CancelOrder(ctx, ev.AccountID, breach.OrderID, r.ID(), breach.Reason) == nil && ok
	}
	if ev.Type == EventPosition {
		ok = exec.ClosePosition(ctx, ev.AccountID, breach.ContractID, r.ID(), breach.Reason) == nil && ok
	}
	locked := exec.LockSymbol(ctx, lockout.SymbolBlock{
		AccountID:  ev.AccountID,
		SymbolRoot: deps.SymbolRoot(ctx, breach.ContractID),
		Reason:     breach.Reason,
		RuleID:     r.ID(),
		LockedAt:   ev.At,
	})
	return ok && locked == nil
}
