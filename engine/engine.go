// engine/engine.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/riskd/internal/metrics"
	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/persist"
	"github.com/rustyeddy/riskd/rules"
)

// ValidationError marks an inbound event the router refused to process.
// The event is dropped, counted and logged; nothing downstream sees it.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Msg)
}

// Engine routes inbound account events through the fixed pipeline: update
// state and trackers, consult the lockout gate, then run the rule set in
// canonical order and enforce the first breach. Events for different
// accounts run concurrently; events for the same account are serialized.
type Engine struct {
	deps  rules.Deps
	rules []rules.Rule
	exec  rules.Executor

	timers *lockout.Registry
	sched  *lockout.Scheduler
	snaps  persist.Store
	log    zerolog.Logger

	lanesMu sync.Mutex
	lanes   map[string]*sync.Mutex

	now func() time.Time

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New assembles an engine. The snapshot store may be nil for purely
// in-memory runs; recovery and flushing are then no-ops.
func New(deps rules.Deps, ruleSet []rules.Rule, exec rules.Executor, timers *lockout.Registry, sched *lockout.Scheduler, snaps persist.Store, log zerolog.Logger) *Engine {
	return &Engine{
		deps:   deps,
		rules:  ruleSet,
		exec:   exec,
		timers: timers,
		sched:  sched,
		snaps:  snaps,
		log:    log.With().Str("component", "engine").Logger(),
		lanes:  make(map[string]*sync.Mutex),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// lane returns the serialization mutex for one account.
func (e *Engine) lane(accountID string) *sync.Mutex {
	e.lanesMu.Lock()
	defer e.lanesMu.Unlock()
	mu, ok := e.lanes[accountID]
	if !ok {
		mu = &sync.Mutex{}
		e.lanes[accountID] = mu
	}
	return mu
}

// OnPositionUpdate ingests a position snapshot from the venue.
func (e *Engine) OnPositionUpdate(ctx context.Context, p market.Position) error {
	if err := validatePosition(p); err != nil {
		return e.drop(err)
	}
	ev := rules.Event{Type: rules.EventPosition, AccountID: p.AccountID, At: e.now(), Position: &p}

	mu := e.lane(p.AccountID)
	mu.Lock()
	defer mu.Unlock()

	e.deps.Store.ApplyPosition(p)
	e.pipeline(ctx, ev)
	return nil
}

// OnOrderUpdate ingests an order lifecycle update.
func (e *Engine) OnOrderUpdate(ctx context.Context, o market.Order) error {
	if err := validateOrder(o); err != nil {
		return e.drop(err)
	}
	ev := rules.Event{Type: rules.EventOrder, AccountID: o.AccountID, At: e.now(), Order: &o}

	mu := e.lane(o.AccountID)
	mu.Lock()
	defer mu.Unlock()

	e.deps.Store.ApplyOrder(o)
	e.pipeline(ctx, ev)
	return nil
}

// OnTrade ingests one execution. Trades feed the frequency counter and,
// when the venue reports per-trade realized P&L, the daily P&L total.
func (e *Engine) OnTrade(ctx context.Context, tr market.Trade) error {
	if err := validateTrade(tr); err != nil {
		return e.drop(err)
	}
	ev := rules.Event{Type: rules.EventTrade, AccountID: tr.AccountID, At: e.at(tr.ExecutedAt), Trade: &tr}

	mu := e.lane(tr.AccountID)
	mu.Lock()
	defer mu.Unlock()

	e.deps.Trades.Record(tr.AccountID, ev.At)
	if tr.RealizedPnL != nil {
		e.deps.PnL.AddRealized(tr.AccountID, *tr.RealizedPnL)
	}
	e.pipeline(ctx, ev)
	return nil
}

// OnQuote ingests a market quote. The board updates unconditionally; the
// rule pipeline then runs for every account holding the contract, since a
// price move can breach mark-to-market limits without any account event.
func (e *Engine) OnQuote(ctx context.Context, q market.Quote) error {
	if err := validateQuote(q); err != nil {
		return e.drop(err)
	}
	e.deps.Quotes.Update(q)

	for _, acct := range e.deps.Store.Accounts() {
		if _, ok := e.deps.Store.Position(acct, q.ContractID); !ok {
			continue
		}
		ev := rules.Event{Type: rules.EventQuote, AccountID: acct, At: e.at(q.ObservedAt), Quote: &q}

		mu := e.lane(acct)
		mu.Lock()
		e.pipeline(ctx, ev)
		mu.Unlock()
	}
	return nil
}

// OnAccountStatus ingests the venue's can-trade flag. A restore clears an
// auth-guard lockout before the gate runs, otherwise the locked account
// could never recover: rules are skipped while the lockout holds.
func (e *Engine) OnAccountStatus(ctx context.Context, st market.AccountStatus) error {
	if err := validateStatus(st); err != nil {
		return e.drop(err)
	}
	ev := rules.Event{Type: rules.EventStatus, AccountID: st.AccountID, At: e.at(st.ObservedAt), Status: &st}

	mu := e.lane(st.AccountID)
	mu.Lock()
	defer mu.Unlock()

	if st.CanTrade {
		if rec, ok := e.deps.Ledger.Get(st.AccountID); ok && rec.RuleID == rules.RuleAuthGuard {
			if err := e.exec.ClearLockout(ctx, st.AccountID, rules.RuleAuthGuard, "venue restored trading"); err != nil {
				e.log.Error().Err(err).Str("account", st.AccountID).Msg("clear auth lockout")
			}
		}
	}

	e.pipeline(ctx, ev)
	return nil
}

// Tick runs the time-driven rules for one account, as if a synthetic event
// arrived. The background sweep calls this for every known account.
func (e *Engine) Tick(ctx context.Context, accountID string) {
	ev := rules.Event{Type: rules.EventTick, AccountID: accountID, At: e.now()}

	mu := e.lane(accountID)
	mu.Lock()
	defer mu.Unlock()

	e.pipeline(ctx, ev)
}

// pipeline is steps three through six: gate, check in canonical order,
// enforce first breach. The caller holds the account lane and has already
// applied the event's state updates.
func (e *Engine) pipeline(ctx context.Context, ev rules.Event) {
	metrics.EventsProcessed.WithLabelValues(string(ev.Type)).Inc()

	if e.deps.Ledger.IsLocked(ev.AccountID, ev.At) {
		metrics.EventsGated.Inc()
		return
	}

	for _, rule := range e.rules {
		if !rule.Enabled() {
			continue
		}
		breach := rule.Check(ctx, ev, e.deps)
		if breach == nil {
			continue
		}

		metrics.Breaches.WithLabelValues(breach.RuleID).Inc()
		e.log.Warn().
			Str("account", ev.AccountID).
			Str("rule", breach.RuleID).
			Str("action", breach.Action).
			Str("reason", breach.Reason).
			Msg("breach")

		if !rule.Enforce(ctx, e.exec, ev, e.deps, *breach) {
			e.log.Error().
				Str("account", ev.AccountID).
				Str("rule", breach.RuleID).
				Msg("enforcement incomplete")
		}
		return // first breach wins
	}
}

func (e *Engine) drop(err error) error {
	metrics.EventsDropped.Inc()
	e.log.Warn().Err(err).Msg("event dropped")
	return err
}

// at normalizes an event timestamp: venue feeds occasionally omit one, and
// the pipeline needs a stable clock for lockout and window math.
func (e *Engine) at(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}

func validatePosition(p market.Position) error {
	switch {
	case p.AccountID == "":
		return &ValidationError{Field: "account_id", Msg: "missing"}
	case p.ContractID == "":
		return &ValidationError{Field: "contract_id", Msg: "missing"}
	case p.Quantity < 0:
		return &ValidationError{Field: "quantity", Msg: "negative"}
	case p.Quantity > 0 && p.Direction != market.Long && p.Direction != market.Short:
		return &ValidationError{Field: "direction", Msg: "unknown"}
	}
	return nil
}

func validateOrder(o market.Order) error {
	switch {
	case o.AccountID == "":
		return &ValidationError{Field: "account_id", Msg: "missing"}
	case o.OrderID == "":
		return &ValidationError{Field: "order_id", Msg: "missing"}
	case o.ContractID == "":
		return &ValidationError{Field: "contract_id", Msg: "missing"}
	}
	return nil
}

func validateTrade(t market.Trade) error {
	switch {
	case t.AccountID == "":
		return &ValidationError{Field: "account_id", Msg: "missing"}
	case t.TradeID == "":
		return &ValidationError{Field: "trade_id", Msg: "missing"}
	}
	return nil
}

func validateQuote(q market.Quote) error {
	switch {
	case q.ContractID == "":
		return &ValidationError{Field: "contract_id", Msg: "missing"}
	case q.Last <= 0:
		return &ValidationError{Field: "last", Msg: "not positive"}
	}
	return nil
}

func validateStatus(s market.AccountStatus) error {
	if s.AccountID == "" {
		return &ValidationError{Field: "account_id", Msg: "missing"}
	}
	return nil
}
