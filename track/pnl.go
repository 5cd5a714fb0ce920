// track/pnl.go
package track

import (
	"context"
	"sync"

	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/state"
)

// PositionPnL is the unrealized value of one open position.
type PositionPnL struct {
	Position   market.Position
	LastPrice  float64
	Unrealized float64
}

// PnLTracker accumulates daily realized P&L per account and values open
// positions against the quote board and contract metadata.
type PnLTracker struct {
	mu       sync.RWMutex
	realized map[string]float64

	store     *state.Store
	quotes    *QuoteBoard
	contracts *ContractCache
}

// NewPnLTracker wires the tracker to its read-only collaborators.
func NewPnLTracker(store *state.Store, quotes *QuoteBoard, contracts *ContractCache) *PnLTracker {
	return &PnLTracker{
		realized:  make(map[string]float64),
		store:     store,
		quotes:    quotes,
		contracts: contracts,
	}
}

// AddRealized accumulates realized P&L from a trade into today's total.
func (t *PnLTracker) AddRealized(accountID string, pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realized[accountID] += pnl
}

// DailyRealized returns the realized P&L accumulated since the last
// session reset.
func (t *PnLTracker) DailyRealized(accountID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized[accountID]
}

// SetRealized overwrites the accumulated value, used when restoring the
// daily counters at startup.
func (t *PnLTracker) SetRealized(accountID string, pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realized[accountID] = pnl
}

// ResetDaily clears the realized accumulator for an account.
func (t *PnLTracker) ResetDaily(accountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.realized, accountID)
}

// Unrealized sums the open-position P&L for an account. Positions with no
// quote or no metadata contribute nothing; a risk decision on a position we
// cannot price would be a guess.
func (t *PnLTracker) Unrealized(ctx context.Context, accountID string) float64 {
	total := 0.0
	for _, p := range t.UnrealizedPositions(ctx, accountID) {
		total += p.Unrealized
	}
	return total
}

// UnrealizedPositions values each open position individually:
// ((last - avg) / tick_size) * tick_value * qty, signed by direction.
func (t *PnLTracker) UnrealizedPositions(ctx context.Context, accountID string) []PositionPnL {
	positions := t.store.Positions(accountID)
	out := make([]PositionPnL, 0, len(positions))
	for _, pos := range positions {
		last, ok := t.quotes.LastPrice(pos.ContractID)
		if !ok {
			continue
		}
		meta, err := t.contracts.Get(ctx, pos.ContractID)
		if err != nil {
			continue
		}
		out = append(out, PositionPnL{
			Position:   pos,
			LastPrice:  last,
			Unrealized: meta.UnrealizedPnL(pos, last),
		})
	}
	return out
}

// Accounts returns every account with a realized accumulator.
func (t *PnLTracker) Accounts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.realized))
	for id := range t.realized {
		out = append(out, id)
	}
	return out
}
