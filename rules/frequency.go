// rules/frequency.go
package rules

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/riskd/lockout"
)

// TradeFrequency throttles overtrading with a cooldown lockout. The
// narrowest breached window decides the tier: session breaches draw the
// longest cooldown, minute breaches the shortest.
type TradeFrequency struct {
	cfg TradeFrequencyConfig
}

func (r *TradeFrequency) ID() string    { return RuleTradeFrequency }
func (r *TradeFrequency) Enabled() bool { return r.cfg.Enabled }

func (r *TradeFrequency) Check(_ context.Context, ev Event, deps Deps) *Breach {
	if ev.Type != EventTrade {
		return nil
	}

	counts := deps.Trades.CountsInWindow(ev.AccountID, ev.At)

	// Widest window first so the harshest applicable tier wins.
	type window struct {
		name     string
		count    int
		limit    int
		cooldown Duration
	}
	for _, w := range []window{
		{"session", counts.Session, r.cfg.PerSession, r.cfg.SessionCooldown},
		{"hour", counts.Hour, r.cfg.PerHour, r.cfg.HourCooldown},
		{"minute", counts.Minute, r.cfg.PerMinute, r.cfg.MinuteCooldown},
	} {
		if w.limit > 0 && w.count > w.limit {
			return &Breach{
				RuleID: r.ID(),
				Action: ActionLockout,
				Reason: fmt.Sprintf("%d trades in %s window exceeds limit %d (cooldown %s)",
					w.count, w.name, w.limit, w.cooldown),
				Metric: float64(w.count),
				Limit:  float64(w.limit),
			}
		}
	}
	return nil
}

func (r *TradeFrequency) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	cooldown := r.cooldownFor(breach)
	return exec.ApplyLockout(ctx, lockout.Record{
		AccountID: ev.AccountID,
		Reason:    breach.Reason,
		RuleID:    r.ID(),
		Kind:      lockout.Cooldown,
		ExpiresAt: cooldownUntil(ev.At, cooldown),
		LockedAt:  ev.At,
	}) == nil
}

func (r *TradeFrequency) cooldownFor(breach Breach) time.Duration {
	switch {
	case r.cfg.PerSession > 0 && int(breach.Limit) == r.cfg.PerSession:
		return r.cfg.SessionCooldown.Std()
	case r.cfg.PerHour > 0 && int(breach.Limit) == r.cfg.PerHour:
		return r.cfg.HourCooldown.Std()
	default:
		return r.cfg.MinuteCooldown.Std()
	}
}

// CooldownAfterLoss enforces a walk-away break after a painful trade. The
// deepest tier the single-trade loss crosses decides the cooldown length.
type CooldownAfterLoss struct {
	cfg CooldownAfterLossConfig
}

func (r *CooldownAfterLoss) ID() string    { return RuleCooldownAfterLoss }
func (r *CooldownAfterLoss) Enabled() bool { return r.cfg.Enabled }

func (r *CooldownAfterLoss) Check(_ context.Context, ev Event, _ Deps) *Breach {
	if ev.Type != EventTrade || ev.Trade == nil || ev.Trade.RealizedPnL == nil {
		return nil
	}
	pnl := *ev.Trade.RealizedPnL
	if pnl >= 0 {
		return nil
	}

	loss := -pnl
	tier, ok := r.tierFor(loss)
	if !ok {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Action: ActionLockout,
		Reason: fmt.Sprintf("trade loss %.2f crossed tier %.2f (cooldown %s)",
			loss, tier.LossAtLeast, tier.Cooldown),
		Metric: loss,
		Limit:  tier.LossAtLeast,
	}
}

func (r *CooldownAfterLoss) tierFor(loss float64) (LossTier, bool) {
	tiers := append([]LossTier(nil), r.cfg.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].LossAtLeast > tiers[j].LossAtLeast })
	for _, t := range tiers {
		if loss >= t.LossAtLeast {
			return t, true
		}
	}
	return LossTier{}, false
}

func (r *CooldownAfterLoss) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	tier, ok := r.tierFor(breach.Metric)
	if !ok {
		return false
	}
	return exec.ApplyLockout(ctx, lockout.Record{
		AccountID: ev.AccountID,
		Reason:    breach.Reason,
		RuleID:    r.ID(),
		Kind:      lockout.Cooldown,
		ExpiresAt: cooldownUntil(ev.At, tier.Cooldown.Std()),
		LockedAt:  ev.At,
	}) == nil
}
