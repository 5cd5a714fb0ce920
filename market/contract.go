// market/contract.go
package market

// ContractMetadata describes the tick economics of one instrument.
// Immutable once fetched; cached indefinitely.
type ContractMetadata struct {
	ContractID string  `json:"contract_id"`
	TickSize   float64 `json:"tick_size"`
	TickValue  float64 `json:"tick_value"`
	SymbolRoot string  `json:"symbol_root"`
}

// Ticks converts a price move into a signed tick count.
func (m ContractMetadata) Ticks(from, to float64) float64 {
	if m.TickSize == 0 {
		return 0
	}
	return (to - from) / m.TickSize
}

// Cash converts a price move on qty contracts into account currency,
// signed by the position direction.
func (m ContractMetadata) Cash(from, to float64, qty int, dir Direction) float64 {
	return m.Ticks(from, to) * m.TickValue * float64(qty) * float64(dir.Sign())
}

// UnrealizedPnL values an open position against the last price:
// ((last - avg) / tick_size) * tick_value * qty, signed by direction.
func (m ContractMetadata) UnrealizedPnL(p Position, last float64) float64 {
	return m.Cash(p.AveragePrice, last, p.Quantity, p.Direction)
}
