// track/quotes.go
package track

import (
	"sync"
	"time"

	"github.com/rustyeddy/riskd/market"
)

// QuoteBoard caches the last observed quote per contract. Contents are
// deliberately not persisted: after a restart the board refills from the
// live feed and staleness checks fail closed until it does.
type QuoteBoard struct {
	mu     sync.RWMutex
	quotes map[string]market.Quote
}

// NewQuoteBoard creates an empty board.
func NewQuoteBoard() *QuoteBoard {
	return &QuoteBoard{quotes: make(map[string]market.Quote)}
}

// Update stores the latest quote for a contract.
func (b *QuoteBoard) Update(q market.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[q.ContractID] = q
}

// Quote returns the last quote for a contract, if any.
func (b *QuoteBoard) Quote(contractID string) (market.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[contractID]
	return q, ok
}

// LastPrice returns the last traded price for a contract, if known.
func (b *QuoteBoard) LastPrice(contractID string) (float64, bool) {
	q, ok := b.Quote(contractID)
	if !ok {
		return 0, false
	}
	return q.Last, true
}

// IsStale reports whether the quote for a contract is older than maxAge.
// A contract with no quote at all is stale.
func (b *QuoteBoard) IsStale(contractID string, maxAge time.Duration, now time.Time) bool {
	q, ok := b.Quote(contractID)
	if !ok {
		return true
	}
	return q.Age(now) > maxAge
}
