// engine/sweep.go
package engine

import (
	"context"
	"time"
)

// Sweep intervals. Timers tick fast so cooldown expiry is prompt; the
// ledger sweep is the durable backstop; resets only need coarse checking.
const (
	timerInterval   = 250 * time.Millisecond
	expiryInterval  = time.Second
	resetInterval   = 30 * time.Second
	flushInterval   = 5 * time.Second
	accountInterval = 10 * time.Second
)

// Run starts the background sweeps and blocks until ctx is cancelled or
// Stop is called. A final flush runs on the way out.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info().Int("rules", len(e.rules)).Msg("engine running")

	e.spawn(ctx, timerInterval, func(now time.Time) {
		if e.timers != nil {
			e.timers.Tick(now)
		}
	})
	e.spawn(ctx, expiryInterval, e.sweepExpired)
	e.spawn(ctx, resetInterval, func(now time.Time) { e.maybeReset(ctx, now) })
	e.spawn(ctx, flushInterval, func(time.Time) { e.Flush() })
	e.spawn(ctx, accountInterval, func(time.Time) { e.tickAccounts(ctx) })

	select {
	case <-ctx.Done():
	case <-e.done:
	}
	e.wg.Wait()
	e.Flush()
	e.log.Info().Msg("engine stopped")
}

// Stop ends Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
}

func (e *Engine) spawn(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()
}

// sweepExpired drops due lockouts straight from the ledger, independent of
// any timer the executor may or may not have running.
func (e *Engine) sweepExpired(now time.Time) {
	for _, rec := range e.deps.Ledger.ExpireDue(now) {
		e.log.Info().Str("account", rec.AccountID).Str("rule", rec.RuleID).
			Msg("lockout expired")
	}
}

// tickAccounts runs the time-driven rules for every known account, so a
// silent account still gets its stop-grace and session checks.
func (e *Engine) tickAccounts(ctx context.Context) {
	for _, acct := range e.deps.Store.Accounts() {
		e.Tick(ctx, acct)
	}
}

// maybeReset performs the daily reset once per session boundary: clear the
// session-scoped lockouts, zero the daily P&L, restart the trade-frequency
// session windows, then flush so a crash right after cannot replay the
// pre-reset counters.
func (e *Engine) maybeReset(ctx context.Context, now time.Time) {
	if e.sched == nil || !e.sched.DueForReset(now) {
		return
	}

	accounts := make(map[string]bool)
	for _, a := range e.deps.Store.Accounts() {
		accounts[a] = true
	}
	for _, a := range e.deps.PnL.Accounts() {
		accounts[a] = true
	}
	for _, a := range e.deps.Trades.Accounts() {
		accounts[a] = true
	}
	for _, a := range e.deps.Ledger.Accounts() {
		accounts[a] = true
	}

	for acct := range accounts {
		mu := e.lane(acct)
		mu.Lock()
		cleared := e.deps.Ledger.ResetClear(acct)
		e.deps.PnL.ResetDaily(acct)
		e.deps.Trades.ResetSession(acct, now)
		mu.Unlock()
		if cleared {
			e.log.Info().Str("account", acct).Msg("session lockout cleared by reset")
		}
	}

	e.sched.MarkDone(now)
	e.Flush()
	e.log.Info().Int("accounts", len(accounts)).Msg("daily reset complete")
}
