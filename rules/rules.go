// rules/rules.go
package rules

import (
	"context"
	"time"

	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/state"
	"github.com/rustyeddy/riskd/track"
)

// Rule IDs, also used as audit keys.
const (
	RuleMaxNetContracts     = "max_net_contracts"
	RuleMaxPerInstrument    = "max_contracts_per_instrument"
	RuleDailyRealizedLoss   = "daily_realized_loss"
	RuleDailyUnrealizedLoss = "daily_unrealized_loss"
	RuleMaxUnrealizedProfit = "max_unrealized_profit"
	RuleTradeFrequency      = "trade_frequency"
	RuleCooldownAfterLoss   = "cooldown_after_loss"
	RuleNoStopLossGrace     = "no_stop_loss_grace"
	RuleSessionBlock        = "session_block"
	RuleAuthGuard           = "auth_guard"
	RuleSymbolBlocks        = "symbol_blocks"
	RuleAutoTradeMgmt       = "auto_trade_management"
)

// EventType tags the inbound event a rule is reacting to.
type EventType string

const (
	EventPosition EventType = "position"
	EventOrder    EventType = "order"
	EventTrade    EventType = "trade"
	EventQuote    EventType = "quote"
	EventStatus   EventType = "account_status"
	// EventTick is a synthetic time tick from the background sweep, used
	// by age- and session-driven rules.
	EventTick EventType = "tick"
)

// Event is the normalized inbound event, one payload field set per type.
type Event struct {
	Type      EventType
	AccountID string
	At        time.Time

	Position *market.Position
	Order    *market.Order
	Trade    *market.Trade
	Quote    *market.Quote
	Status   *market.AccountStatus
}

// Breach is the result of a rule check whose condition is violated.
type Breach struct {
	RuleID     string
	Action     string
	Reason     string
	Metric     float64
	Limit      float64
	ContractID string // set when enforcement targets one contract
	OrderID    string // set when enforcement targets one order
}

// Dominant enforcement actions, recorded on the breach for audit.
const (
	ActionCloseAll      = "close_all_positions"
	ActionClosePosition = "close_position"
	ActionReduceToLimit = "reduce_to_limit"
	ActionCancelClose   = "cancel_and_close"
	ActionLockout       = "lockout"
	ActionModifyStop    = "modify_stop"
)

// Deps is the read-only view rules evaluate against. Check must not mutate
// anything here; all mutation happens in Enforce through the Executor.
type Deps struct {
	Store     *state.Store
	PnL       *track.PnLTracker
	Trades    *track.TradeCounter
	Quotes    *track.QuoteBoard
	Contracts *track.ContractCache
	Ledger    *lockout.Ledger
	Calendar  lockout.Calendar
}

// SymbolRoot resolves a contract ID to its symbol root, falling back to the
// contract ID itself when metadata is unavailable.
func (d Deps) SymbolRoot(ctx context.Context, contractID string) string {
	meta, err := d.Contracts.Get(ctx, contractID)
	if err != nil || meta.SymbolRoot == "" {
		return contractID
	}
	return meta.SymbolRoot
}

// Executor is what a rule's Enforce drives. It is implemented by the
// enforcement executor, the only component allowed to command the venue or
// mutate the lockout ledger.
type Executor interface {
	CloseAllPositions(ctx context.Context, accountID, ruleID, reason string) error
	ClosePosition(ctx context.Context, accountID, contractID, ruleID, reason string) error
	ReduceToLimit(ctx context.Context, accountID, contractID string, target int, ruleID, reason string) error
	CancelAllOrders(ctx context.Context, accountID, ruleID, reason string) error
	CancelOrder(ctx context.Context, accountID, orderID, ruleID, reason string) error
	ApplyLockout(ctx context.Context, rec lockout.Record) error
	ClearLockout(ctx context.Context, accountID, ruleID, reason string) error
	LockSymbol(ctx context.Context, block lockout.SymbolBlock) error
	ModifyStop(ctx context.Context, accountID, orderID string, stopPrice float64, ruleID, reason string) error
}

// Rule is one risk policy. Check is pure with respect to its inputs;
// Enforce performs the protective action and reports overall success.
type Rule interface {
	ID() string
	Enabled() bool
	Check(ctx context.Context, ev Event, deps Deps) *Breach
	Enforce(ctx context.Context, exec Executor, ev Event, deps Deps, breach Breach) bool
}

// Build assembles the enabled-and-disabled rule set in canonical order.
// The order is fixed and configuration-independent; the router stops at the
// first breach, so earlier rules always win ties.
func Build(cfg Config) []Rule {
	return []Rule{
		&MaxNetContracts{cfg: cfg.MaxNetContracts},
		&MaxPerInstrument{cfg: cfg.MaxPerInstrument},
		&DailyRealizedLoss{cfg: cfg.DailyRealizedLoss},
		&DailyUnrealizedLoss{cfg: cfg.DailyUnrealizedLoss},
		&MaxUnrealizedProfit{cfg: cfg.MaxUnrealizedProfit},
		&TradeFrequency{cfg: cfg.TradeFrequency},
		&CooldownAfterLoss{cfg: cfg.CooldownAfterLoss},
		&NoStopLossGrace{cfg: cfg.NoStopLossGrace},
		&SessionBlock{cfg: cfg.SessionBlock},
		&AuthGuard{cfg: cfg.AuthGuard},
		&SymbolBlocks{cfg: cfg.SymbolBlocks},
		&AutoTradeMgmt{cfg: cfg.AutoTradeMgmt},
	}
}
