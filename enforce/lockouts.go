// enforce/lockouts.go
package enforce

import (
	"context"
	"fmt"

	"github.com/rustyeddy/riskd/internal/metrics"
	"github.com/rustyeddy/riskd/lockout"
)

// TimerName is the registry key for an account's cooldown timer.
func TimerName(accountID string) string { return "cooldown:" + accountID }

// ApplyLockout writes a lockout to the ledger and, for timed lockouts,
// starts a countdown so expiry does not wait for the next sweep. The ledger
// is authoritative either way: a lost timer only delays the unlock until
// the sweep catches it.
func (e *Executor) ApplyLockout(ctx context.Context, rec lockout.Record) error {
	t := &tally{}

	if !e.ledger.Lock(rec) {
		// Already locked: first breach won, keep the existing record and
		// don't journal a second enforcement.
		e.log.Debug().Str("account", rec.AccountID).Str("rule", rec.RuleID).
			Msg("already locked, kept existing record")
		return nil
	}
	t.ok(describeLockout(rec))
	e.startExpiry(rec)
	e.updateGauge()

	return e.finish("lockout", rec.AccountID, rec.RuleID, rec.Reason, t)
}

// ClearLockout removes an account's lockout and cancels its timer.
func (e *Executor) ClearLockout(ctx context.Context, accountID, ruleID, reason string) error {
	t := &tally{}

	if e.ledger.Clear(accountID) {
		t.ok("lockout cleared")
	} else {
		t.ok("no lockout present")
	}
	if e.timers != nil {
		e.timers.Cancel(TimerName(accountID))
	}
	e.updateGauge()

	return e.finish("clear_lockout", accountID, ruleID, reason, t)
}

// LockSymbol records a permanent per-instrument block. It does not gate the
// account as a whole.
func (e *Executor) LockSymbol(ctx context.Context, block lockout.SymbolBlock) error {
	t := &tally{}

	if e.ledger.LockSymbol(block) {
		t.ok("blocked " + block.SymbolRoot)
	} else {
		t.ok(block.SymbolRoot + " already blocked")
	}

	return e.finish("lock_symbol", block.AccountID, block.RuleID, block.Reason, t)
}

func (e *Executor) startExpiry(rec lockout.Record) {
	if e.timers == nil || rec.ExpiresAt == nil {
		return
	}
	remaining := rec.ExpiresAt.Sub(e.now())
	if remaining <= 0 {
		return
	}

	accountID := rec.AccountID
	e.timers.Start(TimerName(accountID), remaining, func() {
		expired := e.ledger.ExpireDue(e.now())
		for _, ex := range expired {
			e.log.Info().Str("account", ex.AccountID).Str("rule", ex.RuleID).
				Msg("lockout expired")
		}
		e.updateGauge()
	})
}

func (e *Executor) updateGauge() {
	now := e.now()
	active := 0
	for _, acct := range e.ledger.Accounts() {
		if e.ledger.IsLocked(acct, now) {
			active++
		}
	}
	metrics.LockoutsActive.Set(float64(active))
}

func describeLockout(rec lockout.Record) string {
	switch {
	case rec.ExpiresAt != nil:
		return fmt.Sprintf("%s lockout until %s", rec.Kind, rec.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	case rec.ClearOnReset:
		return "lockout until session reset"
	default:
		return "indefinite lockout"
	}
}
