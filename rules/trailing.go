// rules/trailing.go
package rules

import (
	"context"
	"fmt"

	"github.com/rustyeddy/riskd/market"
)

// AutoTradeMgmt ratchets protective stops as a position moves into profit:
// to breakeven once the breakeven trigger is hit, then trailing behind the
// last price. It only ever tightens a stop, and it is the one rule that
// neither closes anything nor locks anyone out.
type AutoTradeMgmt struct {
	cfg AutoTradeMgmtConfig
}

func (r *AutoTradeMgmt) ID() string    { return RuleAutoTradeMgmt }
func (r *AutoTradeMgmt) Enabled() bool { return r.cfg.Enabled }

func (r *AutoTradeMgmt) Check(ctx context.Context, ev Event, deps Deps) *Breach {
	if r.cfg.BreakevenTicks <= 0 {
		return nil
	}

	var contractID string
	switch ev.Type {
	case EventPosition:
		if ev.Position != nil {
			contractID = ev.Position.ContractID
		}
	case EventQuote:
		if ev.Quote != nil {
			contractID = ev.Quote.ContractID
		}
	case EventOrder:
		if ev.Order != nil {
			contractID = ev.Order.ContractID
		}
	}
	if contractID == "" {
		return nil
	}

	pos, ok := deps.Store.Position(ev.AccountID, contractID)
	if !ok {
		return nil
	}

	move, ok := r.plan(ctx, ev.AccountID, pos, deps)
	if !ok {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Action: ActionModifyStop,
		Reason: fmt.Sprintf("%s profit %.1f ticks past trigger %.1f, stop %.2f -> %.2f",
			contractID, move.profitTicks, r.cfg.BreakevenTicks, move.currentStop, move.desiredStop),
		Metric:     move.profitTicks,
		Limit:      r.cfg.BreakevenTicks,
		ContractID: contractID,
		OrderID:    move.orderID,
	}
}

func (r *AutoTradeMgmt) Enforce(ctx context.Context, exec Executor, ev Event, deps Deps, breach Breach) bool {
	pos, ok := deps.Store.Position(ev.AccountID, breach.ContractID)
	if !ok {
		return false
	}
	move, ok := r.plan(ctx, ev.AccountID, pos, deps)
	if !ok {
		return false
	}
	return exec.ModifyStop(ctx, ev.AccountID, move.orderID, move.desiredStop, r.ID(), breach.Reason) == nil
}

type stopMove struct {
	orderID     string
	currentStop float64
	desiredStop float64
	profitTicks float64
}

// plan decides whether the position's stop should move, and where to.
func (r *AutoTradeMgmt) plan(ctx context.Context, accountID string, pos market.Position, deps Deps) (stopMove, bool) {
	meta, err := deps.Contracts.Get(ctx, pos.ContractID)
	if err != nil || meta.TickSize == 0 {
		return stopMove{}, false
	}
	last, ok := deps.Quotes.LastPrice(pos.ContractID)
	if !ok {
		return stopMove{}, false
	}

	sign := float64(pos.Direction.Sign())
	profitTicks := meta.Ticks(pos.AveragePrice, last) * sign
	if profitTicks < r.cfg.BreakevenTicks {
		return stopMove{}, false
	}

	stop, ok := findStop(deps.Store.Orders(accountID), pos)
	if !ok || stop.StopPrice == nil {
		return stopMove{}, false
	}

	desired := pos.AveragePrice
	if r.cfg.TrailTicks > 0 {
		trail := last - r.cfg.TrailTicks*meta.TickSize*sign
		// Take the tighter of breakeven and the trail.
		if trail*sign > desired*sign {
			desired = trail
		}
	}

	current := *stop.StopPrice
	// Only tighten: never move a stop away from the market.
	if desired*sign <= current*sign {
		return stopMove{}, false
	}

	return stopMove{
		orderID:     stop.OrderID,
		currentStop: current,
		desiredStop: desired,
		profitTicks: profitTicks,
	}, true
}

func findStop(orders []market.Order, pos market.Position) (market.Order, bool) {
	for _, o := range orders {
		if o.ContractID == pos.ContractID && o.Protective(pos.Direction) {
			return o, true
		}
	}
	return market.Order{}, false
}
