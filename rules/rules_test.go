package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/state"
	"github.com/rustyeddy/riskd/track"
)

// recorder is a scripted Executor that records every call it receives.
type recorder struct {
	calls    []string
	lockouts []lockout.Record
	symbols  []lockout.SymbolBlock
	targets  []int
	stops    []float64
	fail     map[string]error
}

func (r *recorder) call(name string) error {
	r.calls = append(r.calls, name)
	return r.fail[name]
}

func (r *recorder) CloseAllPositions(_ context.Context, _, _, _ string) error {
	return r.call("close_all")
}

func (r *recorder) ClosePosition(_ context.Context, _, contractID, _, _ string) error {
	return r.call("close " + contractID)
}

func (r *recorder) ReduceToLimit(_ context.Context, _, contractID string, target int, _, _ string) error {
	r.targets = append(r.targets, target)
	return r.call("reduce " + contractID)
}

func (r *recorder) CancelAllOrders(_ context.Context, _, _, _ string) error {
	return r.call("cancel_all")
}

func (r *recorder) CancelOrder(_ context.Context, _, orderID, _, _ string) error {
	return r.call("cancel " + orderID)
}

func (r *recorder) ApplyLockout(_ context.Context, rec lockout.Record) error {
	r.lockouts = append(r.lockouts, rec)
	return r.call("lockout")
}

func (r *recorder) ClearLockout(_ context.Context, _, _, _ string) error {
	return r.call("clear_lockout")
}

func (r *recorder) LockSymbol(_ context.Context, block lockout.SymbolBlock) error {
	r.symbols = append(r.symbols, block)
	return r.call("lock_symbol " + block.SymbolRoot)
}

func (r *recorder) ModifyStop(_ context.Context, _, orderID string, stopPrice float64, _, _ string) error {
	r.stops = append(r.stops, stopPrice)
	return r.call("modify_stop " + orderID)
}

var chicago = func() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
	return loc
}()

func testDeps() Deps {
	store := state.NewStore()
	quotes := track.NewQuoteBoard()
	contracts := track.NewContractCache(nil)
	contracts.Seed(market.ContractMetadata{
		ContractID: "ESZ6", TickSize: 0.25, TickValue: 12.50, SymbolRoot: "ES",
	})
	contracts.Seed(market.ContractMetadata{
		ContractID: "NQZ6", TickSize: 0.25, TickValue: 5.00, SymbolRoot: "NQ",
	})
	return Deps{
		Store:     store,
		PnL:       track.NewPnLTracker(store, quotes, contracts),
		Trades:    track.NewTradeCounter(),
		Quotes:    quotes,
		Contracts: contracts,
		Ledger:    lockout.NewLedger(),
		Calendar: lockout.Calendar{
			Location: chicago,
			Open:     lockout.TimeOfDay{Hour: 17},
			Close:    lockout.TimeOfDay{Hour: 16},
			Reset:    lockout.TimeOfDay{Hour: 17},
		},
	}
}

// inSession is a Wednesday mid-morning in Chicago.
var inSession = time.Date(2026, 3, 11, 10, 0, 0, 0, chicago)

func longPosition(acct, contract string, qty int, avg float64, at time.Time) market.Position {
	return market.Position{
		AccountID:    acct,
		ContractID:   contract,
		Direction:    market.Long,
		Quantity:     qty,
		AveragePrice: avg,
		OpenedAt:     at,
	}
}

func positionEvent(p market.Position, at time.Time) Event {
	return Event{Type: EventPosition, AccountID: p.AccountID, At: at, Position: &p}
}

func TestBuild_CanonicalOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		RuleMaxNetContracts,
		RuleMaxPerInstrument,
		RuleDailyRealizedLoss,
		RuleDailyUnrealizedLoss,
		RuleMaxUnrealizedProfit,
		RuleTradeFrequency,
		RuleCooldownAfterLoss,
		RuleNoStopLossGrace,
		RuleSessionBlock,
		RuleAuthGuard,
		RuleSymbolBlocks,
		RuleAutoTradeMgmt,
	}

	set := Build(Config{})
	require.Len(t, set, len(want))
	for i, rule := range set {
		assert.Equal(t, want[i], rule.ID())
		assert.False(t, rule.Enabled(), "zero config must leave %s disabled", rule.ID())
	}
}

func TestMaxNetContracts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 4, 5000, inSession))
	deps.Store.ApplyPosition(longPosition("acct-1", "NQZ6", 3, 18000, inSession))

	rule := &MaxNetContracts{cfg: MaxNetContractsConfig{Enabled: true, Limit: 5}}
	ev := positionEvent(longPosition("acct-1", "NQZ6", 3, 18000, inSession), inSession)

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, ActionReduceToLimit, breach.Action)
	assert.Equal(t, 7.0, breach.Metric)
	assert.Equal(t, "NQZ6", breach.ContractID)

	// Trim the triggering contract by the excess: 3 held, 2 over, target 1.
	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	require.Equal(t, []string{"reduce NQZ6"}, exec.calls)
	assert.Equal(t, []int{1}, exec.targets)
}

func TestMaxNetContracts_OppositeSideEventTrimsNetSide(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 8, 5000, inSession))
	hedge := market.Position{
		AccountID: "acct-1", ContractID: "NQZ6",
		Direction: market.Short, Quantity: 2, AveragePrice: 18000, OpenedAt: inSession,
	}
	deps.Store.ApplyPosition(hedge)

	rule := &MaxNetContracts{cfg: MaxNetContractsConfig{Enabled: true, Limit: 5}}
	// Net is +6; the update arrives on the short hedge. Trimming the hedge
	// would buy, pushing net to +7, so the long leg must be the target.
	ev := positionEvent(hedge, inSession)

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, 6.0, breach.Metric)
	assert.Equal(t, "ESZ6", breach.ContractID)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	require.Equal(t, []string{"reduce ESZ6"}, exec.calls)
	assert.Equal(t, []int{7}, exec.targets)
}

func TestMaxNetContracts_CloseAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 6, 5000, inSession))

	rule := &MaxNetContracts{cfg: MaxNetContractsConfig{Enabled: true, Limit: 5, CloseAll: true}}
	ev := positionEvent(longPosition("acct-1", "ESZ6", 6, 5000, inSession), inSession)

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, ActionCloseAll, breach.Action)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all"}, exec.calls)
}

func TestMaxNetContracts_ShortAtLimit(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	short := market.Position{
		AccountID: "acct-1", ContractID: "ESZ6",
		Direction: market.Short, Quantity: 5, AveragePrice: 5000, OpenedAt: inSession,
	}
	deps.Store.ApplyPosition(short)

	rule := &MaxNetContracts{cfg: MaxNetContractsConfig{Enabled: true, Limit: 5}}
	assert.Nil(t, rule.Check(context.Background(), positionEvent(short, inSession), deps))
}

func TestMaxPerInstrument_Override(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "NQZ6", 3, 18000, inSession))

	rule := &MaxPerInstrument{cfg: MaxPerInstrumentConfig{
		Enabled:   true,
		Limit:     10,
		PerSymbol: map[string]int{"NQ": 2},
	}}
	ev := positionEvent(longPosition("acct-1", "NQZ6", 3, 18000, inSession), inSession)

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, 2.0, breach.Limit)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []int{2}, exec.targets)

	// Under the default limit, no breach for an unlisted symbol.
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 3, 5000, inSession))
	assert.Nil(t, rule.Check(ctx, positionEvent(longPosition("acct-1", "ESZ6", 3, 5000, inSession), inSession), deps))
}

func TestDailyRealizedLoss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.PnL.AddRealized("acct-1", -1250)

	rule := &DailyRealizedLoss{cfg: DailyRealizedLossConfig{Enabled: true, Limit: 1000}}
	pnl := -1250.0
	ev := Event{Type: EventTrade, AccountID: "acct-1", At: inSession,
		Trade: &market.Trade{TradeID: "t-1", AccountID: "acct-1", RealizedPnL: &pnl}}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, -1250.0, breach.Metric)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all", "cancel_all", "lockout"}, exec.calls)
	require.Len(t, exec.lockouts, 1)
	assert.Equal(t, lockout.HardUntil, exec.lockouts[0].Kind)
	assert.True(t, exec.lockouts[0].ClearOnReset)
	assert.Nil(t, exec.lockouts[0].ExpiresAt)

	// Losses inside the limit pass.
	deps.PnL.SetRealized("acct-1", -999)
	assert.Nil(t, rule.Check(ctx, ev, deps))
}

func TestDailyUnrealizedLoss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	// Long 2 ES from 5000, marked at 4990: -40 ticks * 12.50 * 2 = -1000.
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 2, 5000, inSession))
	deps.Quotes.Update(market.Quote{ContractID: "ESZ6", Last: 4990, ObservedAt: inSession})

	rule := &DailyUnrealizedLoss{cfg: DailyUnrealizedLossConfig{Enabled: true, Limit: 1000}}
	q := market.Quote{ContractID: "ESZ6", Last: 4990, ObservedAt: inSession}
	ev := Event{Type: EventQuote, AccountID: "acct-1", At: inSession, Quote: &q}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.InDelta(t, -1000, breach.Metric, 1e-9)

	// No lockout configured: close only.
	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all"}, exec.calls)

	locking := &DailyUnrealizedLoss{cfg: DailyUnrealizedLossConfig{Enabled: true, Limit: 1000, Lockout: true}}
	exec = &recorder{}
	assert.True(t, locking.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all", "lockout"}, exec.calls)
}

func TestMaxUnrealizedProfit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 2, 5000, inSession))
	deps.Quotes.Update(market.Quote{ContractID: "ESZ6", Last: 5020, ObservedAt: inSession})

	rule := &MaxUnrealizedProfit{cfg: MaxUnrealizedProfitConfig{Enabled: true, Target: 2000}}
	ev := positionEvent(longPosition("acct-1", "ESZ6", 2, 5000, inSession), inSession)

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.InDelta(t, 2000, breach.Metric, 1e-9)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all", "lockout"}, exec.calls)
	require.Len(t, exec.lockouts, 1)
	assert.True(t, exec.lockouts[0].ClearOnReset)
}

func TestTradeFrequency_TierSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	for i := 0; i < 4; i++ {
		deps.Trades.Record("acct-1", inSession.Add(time.Duration(i)*time.Second))
	}

	rule := &TradeFrequency{cfg: TradeFrequencyConfig{
		Enabled:        true,
		PerMinute:      3,
		PerHour:        10,
		MinuteCooldown: Duration(5 * time.Minute),
		HourCooldown:   Duration(30 * time.Minute),
	}}
	ev := Event{Type: EventTrade, AccountID: "acct-1", At: inSession.Add(3 * time.Second),
		Trade: &market.Trade{TradeID: "t-4", AccountID: "acct-1"}}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, 3.0, breach.Limit)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	require.Len(t, exec.lockouts, 1)
	rec := exec.lockouts[0]
	assert.Equal(t, lockout.Cooldown, rec.Kind)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, ev.At.Add(5*time.Minute), *rec.ExpiresAt)
}

func TestTradeFrequency_WidestWindowWins(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	for i := 0; i < 6; i++ {
		deps.Trades.Record("acct-1", inSession.Add(time.Duration(i)*time.Second))
	}

	// Both minute and session limits are breached; the session tier is
	// reported because it draws the longer cooldown.
	rule := &TradeFrequency{cfg: TradeFrequencyConfig{
		Enabled:         true,
		PerMinute:       3,
		PerSession:      5,
		MinuteCooldown:  Duration(5 * time.Minute),
		SessionCooldown: Duration(4 * time.Hour),
	}}
	ev := Event{Type: EventTrade, AccountID: "acct-1", At: inSession.Add(6 * time.Second),
		Trade: &market.Trade{TradeID: "t-6", AccountID: "acct-1"}}

	breach := rule.Check(context.Background(), ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, 5.0, breach.Limit)
	assert.Equal(t, 4*time.Hour, rule.cooldownFor(*breach))
}

func TestCooldownAfterLoss_DeepestTier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	rule := &CooldownAfterLoss{cfg: CooldownAfterLossConfig{
		Enabled: true,
		Tiers: []LossTier{
			{LossAtLeast: 100, Cooldown: Duration(5 * time.Minute)},
			{LossAtLeast: 500, Cooldown: Duration(30 * time.Minute)},
		},
	}}

	pnl := -650.0
	ev := Event{Type: EventTrade, AccountID: "acct-1", At: inSession,
		Trade: &market.Trade{TradeID: "t-1", AccountID: "acct-1", RealizedPnL: &pnl}}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, 500.0, breach.Limit)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	require.Len(t, exec.lockouts, 1)
	require.NotNil(t, exec.lockouts[0].ExpiresAt)
	assert.Equal(t, inSession.Add(30*time.Minute), *exec.lockouts[0].ExpiresAt)

	// A winner or a shallow loss draws nothing.
	win := 40.0
	ev.Trade.RealizedPnL = &win
	assert.Nil(t, rule.Check(ctx, ev, deps))
	shallow := -50.0
	ev.Trade.RealizedPnL = &shallow
	assert.Nil(t, rule.Check(ctx, ev, deps))
}

func TestNoStopLossGrace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	opened := inSession.Add(-2 * time.Minute)
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 2, 5000, opened))

	rule := &NoStopLossGrace{cfg: NoStopLossGraceConfig{Enabled: true, Grace: Duration(time.Minute)}}
	ev := Event{Type: EventTick, AccountID: "acct-1", At: inSession}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, "ESZ6", breach.ContractID)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close ESZ6"}, exec.calls)

	// A working sell stop protects the long and clears the breach.
	stop := 4990.0
	deps.Store.ApplyOrder(market.Order{
		AccountID: "acct-1", OrderID: "o-1", ContractID: "ESZ6",
		Side: market.Sell, Kind: market.Stop, Quantity: 2,
		StopPrice: &stop, Status: market.StatusWorking, CreatedAt: inSession,
	})
	assert.Nil(t, rule.Check(ctx, ev, deps))
}

func TestSessionBlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 1, 5000, inSession))

	rule := &SessionBlock{cfg: SessionBlockConfig{Enabled: true}}

	// Saturday afternoon: market closed.
	closed := time.Date(2026, 3, 14, 12, 0, 0, 0, chicago)
	ev := Event{Type: EventTick, AccountID: "acct-1", At: closed}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all", "lockout"}, exec.calls)
	require.Len(t, exec.lockouts, 1)
	require.NotNil(t, exec.lockouts[0].ExpiresAt)
	assert.Equal(t, deps.Calendar.NextSessionStart(closed), *exec.lockouts[0].ExpiresAt)

	// In session, or flat out of session, no breach.
	assert.Nil(t, rule.Check(ctx, Event{Type: EventTick, AccountID: "acct-1", At: inSession}, deps))
	assert.Nil(t, rule.Check(ctx, Event{Type: EventTick, AccountID: "acct-2", At: closed}, deps))
}

func TestAuthGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	rule := &AuthGuard{cfg: AuthGuardConfig{Enabled: true}}

	status := market.AccountStatus{AccountID: "acct-1", CanTrade: false, Reason: "margin call", ObservedAt: inSession}
	ev := Event{Type: EventStatus, AccountID: "acct-1", At: inSession, Status: &status}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Contains(t, breach.Reason, "margin call")

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"close_all", "cancel_all", "lockout"}, exec.calls)
	require.Len(t, exec.lockouts, 1)
	assert.Nil(t, exec.lockouts[0].ExpiresAt, "auth lockout is indefinite")
	assert.False(t, exec.lockouts[0].ClearOnReset)

	ok := market.AccountStatus{AccountID: "acct-1", CanTrade: true, ObservedAt: inSession}
	assert.Nil(t, rule.Check(ctx, Event{Type: EventStatus, AccountID: "acct-1", At: inSession, Status: &ok}, deps))
}

func TestSymbolBlocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	rule := &SymbolBlocks{cfg: SymbolBlocksConfig{Enabled: true, Blocked: []string{"NQ"}}}

	order := market.Order{
		AccountID: "acct-1", OrderID: "o-9", ContractID: "NQZ6",
		Side: market.Buy, Kind: market.Limit, Quantity: 1,
		Status: market.StatusWorking, CreatedAt: inSession,
	}
	ev := Event{Type: EventOrder, AccountID: "acct-1", At: inSession, Order: &order}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, "o-9", breach.OrderID)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"cancel o-9", "lock_symbol NQ"}, exec.calls)

	// A previously ledger-locked symbol trips the rule even when the
	// config list does not name it.
	deps.Ledger.LockSymbol(lockout.SymbolBlock{
		AccountID: "acct-1", SymbolRoot: "ES", RuleID: RuleSymbolBlocks, LockedAt: inSession,
	})
	pos := longPosition("acct-1", "ESZ6", 1, 5000, inSession)
	got := rule.Check(ctx, positionEvent(pos, inSession), deps)
	require.NotNil(t, got)
	assert.Equal(t, "ESZ6", got.ContractID)
}

func TestAutoTradeMgmt_Breakeven(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 1, 5000, inSession))
	stop := 4995.0
	deps.Store.ApplyOrder(market.Order{
		AccountID: "acct-1", OrderID: "o-1", ContractID: "ESZ6",
		Side: market.Sell, Kind: market.Stop, Quantity: 1,
		StopPrice: &stop, Status: market.StatusWorking, CreatedAt: inSession,
	})
	// +12 ticks of profit, trigger at 10.
	deps.Quotes.Update(market.Quote{ContractID: "ESZ6", Last: 5003, ObservedAt: inSession})

	rule := &AutoTradeMgmt{cfg: AutoTradeMgmtConfig{Enabled: true, BreakevenTicks: 10}}
	q := market.Quote{ContractID: "ESZ6", Last: 5003, ObservedAt: inSession}
	ev := Event{Type: EventQuote, AccountID: "acct-1", At: inSession, Quote: &q}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)
	assert.Equal(t, ActionModifyStop, breach.Action)
	assert.Equal(t, "o-1", breach.OrderID)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []string{"modify_stop o-1"}, exec.calls)
	assert.Equal(t, []float64{5000}, exec.stops)

	// Already at breakeven: nothing to tighten.
	at := 5000.0
	deps.Store.ApplyOrder(market.Order{
		AccountID: "acct-1", OrderID: "o-1", ContractID: "ESZ6",
		Side: market.Sell, Kind: market.Stop, Quantity: 1,
		StopPrice: &at, Status: market.StatusWorking, CreatedAt: inSession,
	})
	assert.Nil(t, rule.Check(ctx, ev, deps))
}

func TestAutoTradeMgmt_Trailing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.Store.ApplyPosition(longPosition("acct-1", "ESZ6", 1, 5000, inSession))
	stop := 5000.0
	deps.Store.ApplyOrder(market.Order{
		AccountID: "acct-1", OrderID: "o-1", ContractID: "ESZ6",
		Side: market.Sell, Kind: market.Stop, Quantity: 1,
		StopPrice: &stop, Status: market.StatusWorking, CreatedAt: inSession,
	})
	// +40 ticks; trail 8 ticks behind puts the stop at 5008.
	deps.Quotes.Update(market.Quote{ContractID: "ESZ6", Last: 5010, ObservedAt: inSession})

	rule := &AutoTradeMgmt{cfg: AutoTradeMgmtConfig{Enabled: true, BreakevenTicks: 10, TrailTicks: 8}}
	q := market.Quote{ContractID: "ESZ6", Last: 5010, ObservedAt: inSession}
	ev := Event{Type: EventQuote, AccountID: "acct-1", At: inSession, Quote: &q}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)

	exec := &recorder{}
	assert.True(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	assert.Equal(t, []float64{5008}, exec.stops)
}

func TestEnforce_ReportsPartialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	deps := testDeps()
	deps.PnL.AddRealized("acct-1", -1500)

	rule := &DailyRealizedLoss{cfg: DailyRealizedLossConfig{Enabled: true, Limit: 1000}}
	pnl := -1500.0
	ev := Event{Type: EventTrade, AccountID: "acct-1", At: inSession,
		Trade: &market.Trade{TradeID: "t-1", AccountID: "acct-1", RealizedPnL: &pnl}}

	breach := rule.Check(ctx, ev, deps)
	require.NotNil(t, breach)

	exec := &recorder{fail: map[string]error{"close_all": assert.AnError}}
	assert.False(t, rule.Enforce(ctx, exec, ev, deps, *breach))
	// The remaining protective actions still run.
	assert.Equal(t, []string{"close_all", "cancel_all", "lockout"}, exec.calls)
}
