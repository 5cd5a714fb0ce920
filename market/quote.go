// market/quote.go
package market

import "time"

// Quote is the last observed market data for a contract. Quotes are
// ephemeral: they live in memory only and are rebuilt from the live feed
// after a restart.
type Quote struct {
	ContractID string    `json:"contract_id"`
	Last       float64   `json:"last"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	ObservedAt time.Time `json:"observed_at"`
}

// Age returns how long ago the quote was observed.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}
