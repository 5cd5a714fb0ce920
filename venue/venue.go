// venue/venue.go
package venue

import (
	"context"

	"github.com/rustyeddy/riskd/market"
)

// Venue is the outbound command interface to the trading venue. The
// enforcement executor depends on this interface only; transport details,
// retries and rate limiting live behind it.
type Venue interface {
	ClosePosition(ctx context.Context, accountID, contractID string) error
	CancelOrder(ctx context.Context, accountID, orderID string) error
	SearchOpenPositions(ctx context.Context, accountID string) ([]market.Position, error)
	SearchOpenOrders(ctx context.Context, accountID string) ([]market.Order, error)
	PlaceOrder(ctx context.Context, spec OrderSpec) (string, error)
	ModifyOrder(ctx context.Context, accountID, orderID string, changes OrderChanges) error
	ContractMetadata(ctx context.Context, contractID string) (market.ContractMetadata, error)
}

// OrderSpec describes a new order to place.
type OrderSpec struct {
	AccountID  string           `json:"account_id"`
	ContractID string           `json:"contract_id"`
	Side       market.Side      `json:"side"`
	Kind       market.OrderKind `json:"kind"`
	Quantity   int              `json:"quantity"`
	LimitPrice *float64         `json:"limit_price,omitempty"`
	StopPrice  *float64         `json:"stop_price,omitempty"`
}

// OrderChanges is a partial modification of a working order. Nil fields are
// left unchanged.
type OrderChanges struct {
	Quantity   *int     `json:"quantity,omitempty"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
	StopPrice  *float64 `json:"stop_price,omitempty"`
}
