// market/types.go
package market

import "time"

// Direction is the side of an open position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign returns +1 for long, -1 for short.
func (d Direction) Sign() int {
	if d == Short {
		return -1
	}
	return 1
}

// Side is the side of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderKind distinguishes the order types the venue accepts.
type OrderKind string

const (
	Market       OrderKind = "market"
	Limit        OrderKind = "limit"
	Stop         OrderKind = "stop"
	StopLimit    OrderKind = "stop_limit"
	TrailingStop OrderKind = "trailing_stop"
)

// OrderStatus is the lifecycle state reported by the venue.
type OrderStatus string

const (
	StatusWorking   OrderStatus = "working"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
	StatusExpired   OrderStatus = "expired"
)

// Terminal reports whether an order in this status is done and should be
// dropped from live state.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Position is the live holding for one (account, contract) pair.
// At most one position exists per pair; updates replace it wholesale.
type Position struct {
	AccountID    string    `json:"account_id"`
	ContractID   string    `json:"contract_id"`
	Direction    Direction `json:"direction"`
	Quantity     int       `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	OpenedAt     time.Time `json:"opened_at"`
}

// SignedQuantity returns quantity with long positive and short negative.
func (p Position) SignedQuantity() int {
	return p.Quantity * p.Direction.Sign()
}

// Order is a working order mirrored from the venue.
type Order struct {
	AccountID  string      `json:"account_id"`
	OrderID    string      `json:"order_id"`
	ContractID string      `json:"contract_id"`
	Side       Side        `json:"side"`
	Kind       OrderKind   `json:"kind"`
	Quantity   int         `json:"quantity"`
	LimitPrice *float64    `json:"limit_price,omitempty"`
	StopPrice  *float64    `json:"stop_price,omitempty"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Protective reports whether the order would reduce risk on a position with
// the given direction: a stop-style order on the opposite side.
func (o Order) Protective(dir Direction) bool {
	if o.Kind != Stop && o.Kind != StopLimit && o.Kind != TrailingStop {
		return false
	}
	if dir == Long {
		return o.Side == Sell
	}
	return o.Side == Buy
}

// Trade is a single execution. Trades are consumed once by the trackers and
// only a bounded rolling history is retained for frequency rules.
type Trade struct {
	TradeID     string    `json:"trade_id"`
	AccountID   string    `json:"account_id"`
	ContractID  string    `json:"contract_id"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	RealizedPnL *float64  `json:"realized_pnl,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// AccountStatus is the venue's view of whether an account may trade.
type AccountStatus struct {
	AccountID  string    `json:"account_id"`
	CanTrade   bool      `json:"can_trade"`
	Reason     string    `json:"reason,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}
