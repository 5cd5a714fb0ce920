// rules/contracts.go
package rules

import (
	"context"
	"fmt"

	"github.com/rustyeddy/riskd/market"
)

// MaxNetContracts caps the signed sum of position quantities across all
// instruments for an account.
type MaxNetContracts struct {
	cfg MaxNetContractsConfig
}

func (r *MaxNetContracts) ID() string    { return RuleMaxNetContracts }
func (r *MaxNetContracts) Enabled() bool { return r.cfg.Enabled }

func (r *MaxNetContracts) Check(_ context.Context, ev Event, deps Deps) *Breach {
	if ev.Type != EventPosition || r.cfg.Limit <= 0 {
		return nil
	}

	net := deps.Store.NetContracts(ev.AccountID)
	if abs(net) <= r.cfg.Limit {
		return nil
	}

	action := ActionReduceToLimit
	if r.cfg.CloseAll {
		action = ActionCloseAll
	}
	breach := &Breach{
		RuleID: r.ID(),
		Action: action,
		Reason: fmt.Sprintf("net contracts %d exceeds limit %d", net, r.cfg.Limit),
		Metric: float64(net),
		Limit:  float64(r.cfg.Limit),
	}
	if pos := reduceTarget(ev, deps, net); pos != nil {
		breach.ContractID = pos.ContractID
	}
	return breach
}

func (r *MaxNetContracts) Enforce(ctx context.Context, exec Executor, ev Event, deps Deps, breach Breach) bool {
	if r.cfg.CloseAll || breach.ContractID == "" {
		return exec.CloseAllPositions(ctx, ev.AccountID, r.ID(), breach.Reason) == nil
	}

	// Trim the selected same-side contract back by the excess.
	excess := abs(int(breach.Metric)) - r.cfg.Limit
	held := deps.Store.ContractCount(ev.AccountID, breach.ContractID)
	target := held - excess
	if target < 0 {
		target = 0
	}
	return exec.ReduceToLimit(ctx, ev.AccountID, breach.ContractID, target, r.ID(), breach.Reason) == nil
}

// reduceTarget picks the position to trim: the triggering contract when it
// sits on the side of the net exposure, otherwise the largest position on
// that side. Trimming an opposite-side contract would move net exposure
// further from the limit, not toward it.
func reduceTarget(ev Event, deps Deps, net int) *market.Position {
	side := 1
	if net < 0 {
		side = -1
	}
	if ev.Position != nil && ev.Position.Direction.Sign() == side {
		p := *ev.Position
		return &p
	}

	var best *market.Position
	for _, p := range deps.Store.Positions(ev.AccountID) {
		if p.Direction.Sign() != side {
			continue
		}
		if best == nil || p.Quantity > best.Quantity {
			q := p
			best = &q
		}
	}
	return best
}

// MaxPerInstrument caps the quantity held in any single contract, with
// optional per-symbol overrides.
type MaxPerInstrument struct {
	cfg MaxPerInstrumentConfig
}

func (r *MaxPerInstrument) ID() string    { return RuleMaxPerInstrument }
func (r *MaxPerInstrument) Enabled() bool { return r.cfg.Enabled }

func (r *MaxPerInstrument) limitFor(root string) int {
	if limit, ok := r.cfg.PerSymbol[root]; ok {
		return limit
	}
	return r.cfg.Limit
}

func (r *MaxPerInstrument) Check(ctx context.Context, ev Event, deps Deps) *Breach {
	if ev.Type != EventPosition || ev.Position == nil {
		return nil
	}

	root := deps.SymbolRoot(ctx, ev.Position.ContractID)
	limit := r.limitFor(root)
	if limit <= 0 {
		return nil
	}

	held := deps.Store.ContractCount(ev.AccountID, ev.Position.ContractID)
	if held <= limit {
		return nil
	}

	return &Breach{
		RuleID:     r.ID(),
		Action:     ActionReduceToLimit,
		Reason:     fmt.Sprintf("%s holds %d contracts, per-symbol limit %d", root, held, limit),
		Metric:     float64(held),
		Limit:      float64(limit),
		ContractID: ev.Position.ContractID,
	}
}

func (r *MaxPerInstrument) Enforce(ctx context.Context, exec Executor, ev Event, _ Deps, breach Breach) bool {
	return exec.ReduceToLimit(ctx, ev.AccountID, breach.ContractID, int(breach.Limit), r.ID(), breach.Reason) == nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
