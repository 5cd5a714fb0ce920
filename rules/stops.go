// rules/stops.go
package rules

import (
	"context"
	"fmt"

	"github.com/rustyeddy/riskd/market"
)

// NoStopLossGrace closes any position that has been open longer than the
// grace period without a qualifying protective order. Runs on position
// updates and on the background time tick so an idle account is still
// inspected.
type NoStopLossGrace struct {
	cfg NoStopLossGraceConfig
}

func (r *NoStopLossGrace) ID() string    { return RuleNoStopLossGrace }
func (r *NoStopLossGrace) Enabled() bool { return r.cfg.Enabled }

func (r *NoStopLossGrace) Check(_ context.Context, ev Event, deps Deps) *Breach {
	if (ev.Type != EventPosition && ev.Type != EventTick) || r.cfg.Grace <= 0 {
		return nil
	}

	orders := deps.Store.Orders(ev.AccountID)
	for _, pos := range deps.Store.Positions(ev.AccountID) {
		age := ev.At.Sub(pos.OpenedAt)
		if age < r.cfg.Grace.Std() {
			continue
		}
		if hasProtectiveOrder(orders, pos.ContractID, pos.Direction) {
			continue
		}
		return &Breach{
			RuleID: r.ID(),
			Action: ActionClosePosition,
			Reason: fmt.Sprintf("position %s open %s without a stop (grace %s)",
				pos.ContractID, age.Truncate(1e9), r.cfg.Grace),
			Metric:     age.Seconds(),
			Limit:      r.cfg.Grace.Std().Seconds(),
			ContractID: pos.ContractID,
		}
	}
	return nil
}

func (r *NoStopLossGrace) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	return exec.ClosePosition(ctx, ev.AccountID, breach.ContractID, r.ID(), breach.Reason) == nil
}

func hasProtectiveOrder(orders []market.Order, contractID string, dir market.Direction) bool {
	for _, o := range orders {
		if o.ContractID == contractID && o.Protective(dir) {
			return true
		}
	}
	return false
}
