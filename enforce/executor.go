// enforce/executor.go
package enforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/riskd/internal/metrics"
	"github.com/rustyeddy/riskd/journal"
	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/pkg/id"
	"github.com/rustyeddy/riskd/rules"
	"github.com/rustyeddy/riskd/venue"
)

// DefaultCallTimeout bounds each individual venue call.
const DefaultCallTimeout = 5 * time.Second

var _ rules.Executor = (*Executor)(nil)

// Executor carries out protective actions against the venue and the lockout
// ledger, and writes one audit record per action. Sub-actions keep going
// when siblings fail: closing two of three positions beats closing none.
type Executor struct {
	venue  venue.Venue
	ledger *lockout.Ledger
	timers *lockout.Registry
	audit  journal.Journal
	log    zerolog.Logger

	// CallTimeout is applied to every venue call. Defaults to
	// DefaultCallTimeout.
	CallTimeout time.Duration

	now func() time.Time
}

// New builds an Executor. The timer registry may be nil when prompt
// cooldown expiry is not wanted; the ledger's own expiries remain correct.
func New(v venue.Venue, ledger *lockout.Ledger, timers *lockout.Registry, audit journal.Journal, log zerolog.Logger) *Executor {
	return &Executor{
		venue:       v,
		ledger:      ledger,
		timers:      timers,
		audit:       audit,
		log:         log.With().Str("component", "enforce").Logger(),
		CallTimeout: DefaultCallTimeout,
		now:         time.Now,
	}
}

// tally accumulates sub-action results for one enforcement action.
type tally struct {
	attempted int
	succeeded int
	details   []string
}

func (t *tally) ok(detail string) {
	t.attempted++
	t.succeeded++
	t.details = append(t.details, detail)
}

func (t *tally) failed(detail string, err error) {
	t.attempted++
	t.details = append(t.details, fmt.Sprintf("%s: %v", detail, err))
}

func (t *tally) outcome() journal.Outcome {
	switch {
	case t.attempted == t.succeeded:
		return journal.OutcomeOK
	case t.succeeded > 0:
		return journal.OutcomeDegraded
	default:
		return journal.OutcomeFailed
	}
}

func (t *tally) err(action string) error {
	if t.succeeded == t.attempted {
		return nil
	}
	return fmt.Errorf("%s: %d of %d sub-actions failed", action, t.attempted-t.succeeded, t.attempted)
}

// finish journals, logs and counts one completed action, then returns the
// action's overall error. An audit write failure downgrades OK to Degraded
// but never blocks the protective action itself.
func (e *Executor) finish(action, accountID, ruleID, reason string, t *tally) error {
	outcome := t.outcome()

	rec := journal.Record{
		RecordID:   id.New(),
		At:         e.now().UTC(),
		ActionType: action,
		AccountID:  accountID,
		RuleID:     ruleID,
		Reason:     reason,
		Outcome:    outcome,
		Details:    strings.Join(t.details, "; "),
	}
	if err := e.audit.RecordEnforcement(rec); err != nil {
		e.log.Error().Err(err).Str("action", action).Str("account", accountID).
			Msg("audit write failed")
		if outcome == journal.OutcomeOK {
			outcome = journal.OutcomeDegraded
		}
	}

	metrics.Enforcements.WithLabelValues(action, string(outcome)).Inc()

	evt := e.log.Info()
	if outcome != journal.OutcomeOK {
		evt = e.log.Warn()
	}
	evt.Str("action", action).
		Str("account", accountID).
		Str("rule", ruleID).
		Str("outcome", string(outcome)).
		Str("reason", reason).
		Msg("enforcement")

	return t.err(action)
}

func (e *Executor) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// CloseAllPositions flattens every open position on the account.
func (e *Executor) CloseAllPositions(ctx context.Context, accountID, ruleID, reason string) error {
	t := &tally{}

	positions, err := e.searchPositions(ctx, accountID)
	if err != nil {
		t.failed("search positions", err)
		return e.finish("close_all_positions", accountID, ruleID, reason, t)
	}
	if len(positions) == 0 {
		t.ok("no open positions")
		return e.finish("close_all_positions", accountID, ruleID, reason, t)
	}

	for _, pos := range positions {
		e.closeOne(ctx, t, accountID, pos.ContractID)
	}
	return e.finish("close_all_positions", accountID, ruleID, reason, t)
}

// ClosePosition flattens one contract.
func (e *Executor) ClosePosition(ctx context.Context, accountID, contractID, ruleID, reason string) error {
	t := &tally{}
	e.closeOne(ctx, t, accountID, contractID)
	return e.finish("close_position", accountID, ruleID, reason, t)
}

// ReduceToLimit trims a position down to target contracts by placing a
// reducing market order, or closes it outright when the target is zero.
func (e *Executor) ReduceToLimit(ctx context.Context, accountID, contractID string, target int, ruleID, reason string) error {
	t := &tally{}

	if target <= 0 {
		e.closeOne(ctx, t, accountID, contractID)
		return e.finish("reduce_to_limit", accountID, ruleID, reason, t)
	}

	positions, err := e.searchPositions(ctx, accountID)
	if err != nil {
		t.failed("search positions", err)
		return e.finish("reduce_to_limit", accountID, ruleID, reason, t)
	}

	var pos *market.Position
	for i := range positions {
		if positions[i].ContractID == contractID {
			pos = &positions[i]
			break
		}
	}
	switch {
	case pos == nil || pos.Quantity <= target:
		// Already within the limit; a fill may have raced us.
		t.ok(fmt.Sprintf("%s already at or under %d", contractID, target))
	default:
		excess := pos.Quantity - target
		side := market.Sell
		if pos.Direction == market.Short {
			side = market.Buy
		}
		e.placeReducing(ctx, t, venue.OrderSpec{
			AccountID:  accountID,
			ContractID: contractID,
			Side:       side,
			Kind:       market.Market,
			Quantity:   excess,
		})
	}
	return e.finish("reduce_to_limit", accountID, ruleID, reason, t)
}

// CancelAllOrders cancels every working order on the account.
func (e *Executor) CancelAllOrders(ctx context.Context, accountID, ruleID, reason string) error {
	t := &tally{}

	cctx, cancel := e.callCtx(ctx)
	orders, err := e.venue.SearchOpenOrders(cctx, accountID)
	cancel()
	if err != nil {
		t.failed("search orders", err)
		return e.finish("cancel_all_orders", accountID, ruleID, reason, t)
	}
	if len(orders) == 0 {
		t.ok("no working orders")
		return e.finish("cancel_all_orders", accountID, ruleID, reason, t)
	}

	for _, o := range orders {
		e.cancelOne(ctx, t, accountID, o.OrderID)
	}
	return e.finish("cancel_all_orders", accountID, ruleID, reason, t)
}

// CancelOrder cancels one working order.
func (e *Executor) CancelOrder(ctx context.Context, accountID, orderID, ruleID, reason string) error {
	t := &tally{}
	e.cancelOne(ctx, t, accountID, orderID)
	return e.finish("cancel_order", accountID, ruleID, reason, t)
}

// ModifyStop moves a protective stop to a new price.
func (e *Executor) ModifyStop(ctx context.Context, accountID, orderID string, stopPrice float64, ruleID, reason string) error {
	t := &tally{}

	cctx, cancel := e.callCtx(ctx)
	err := e.venue.ModifyOrder(cctx, accountID, orderID, venue.OrderChanges{StopPrice: &stopPrice})
	cancel()
	if err != nil {
		t.failed(fmt.Sprintf("modify %s to %.2f", orderID, stopPrice), err)
	} else {
		t.ok(fmt.Sprintf("moved %s to %.2f", orderID, stopPrice))
	}
	return e.finish("modify_stop", accountID, ruleID, reason, t)
}

func (e *Executor) searchPositions(ctx context.Context, accountID string) ([]market.Position, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.venue.SearchOpenPositions(cctx, accountID)
}

func (e *Executor) closeOne(ctx context.Context, t *tally, accountID, contractID string) {
	cctx, cancel := e.callCtx(ctx)
	err := e.venue.ClosePosition(cctx, accountID, contractID)
	cancel()
	if err != nil {
		t.failed("close "+contractID, err)
		return
	}
	t.ok("closed " + contractID)
}

func (e *Executor) cancelOne(ctx context.Context, t *tally, accountID, orderID string) {
	cctx, cancel := e.callCtx(ctx)
	err := e.venue.CancelOrder(cctx, accountID, orderID)
	cancel()
	if err != nil {
		t.failed("cancel "+orderID, err)
		return
	}
	t.ok("cancelled " + orderID)
}

func (e *Executor) placeReducing(ctx context.Context, t *tally, spec venue.OrderSpec) {
	cctx, cancel := e.callCtx(ctx)
	orderID, err := e.venue.PlaceOrder(cctx, spec)
	cancel()
	if err != nil {
		t.failed(fmt.Sprintf("reduce %s by %d", spec.ContractID, spec.Quantity), err)
		return
	}
	t.ok(fmt.Sprintf("reduced %s by %d (order %s)", spec.ContractID, spec.Quantity, orderID))
}
