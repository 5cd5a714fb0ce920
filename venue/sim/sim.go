// venue/sim/sim.go
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/pkg/id"
	"github.com/rustyeddy/riskd/venue"
)

// Venue is an in-memory venue for tests and dry runs. Individual commands
// can be scripted to fail, which is how the executor's partial-failure
// behavior is exercised.
type Venue struct {
	mu        sync.Mutex
	positions map[string]map[string]market.Position // account -> contract
	orders    map[string]map[string]market.Order    // account -> order ID
	metas     map[string]market.ContractMetadata

	failClose  map[string]error // contract ID -> scripted error
	failCancel map[string]error // order ID -> scripted error
	failPlace  error
	failModify error

	Closed   []string // contract IDs closed, in call order
	Canceled []string // order IDs canceled, in call order
	Placed   []venue.OrderSpec
	Modified []string
}

// New creates an empty sim venue.
func New() *Venue {
	return &Venue{
		positions:  make(map[string]map[string]market.Position),
		orders:     make(map[string]map[string]market.Order),
		metas:      make(map[string]market.ContractMetadata),
		failClose:  make(map[string]error),
		failCancel: make(map[string]error),
	}
}

// SeedPosition installs an open position.
func (v *Venue) SeedPosition(p market.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	byContract, ok := v.positions[p.AccountID]
	if !ok {
		byContract = make(map[string]market.Position)
		v.positions[p.AccountID] = byContract
	}
	byContract[p.ContractID] = p
}

// SeedOrder installs a working order.
func (v *Venue) SeedOrder(o market.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	byID, ok := v.orders[o.AccountID]
	if !ok {
		byID = make(map[string]market.Order)
		v.orders[o.AccountID] = byID
	}
	byID[o.OrderID] = o
}

// SeedMetadata installs contract metadata.
func (v *Venue) SeedMetadata(m market.ContractMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metas[m.ContractID] = m
}

// FailClose scripts ClosePosition for one contract to fail.
func (v *Venue) FailClose(contractID string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failClose[contractID] = err
}

// FailCancel scripts CancelOrder for one order to fail.
func (v *Venue) FailCancel(orderID string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failCancel[orderID] = err
}

// FailPlace scripts PlaceOrder to fail.
func (v *Venue) FailPlace(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failPlace = err
}

// FailModify scripts ModifyOrder to fail.
func (v *Venue) FailModify(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failModify = err
}

func (v *Venue) ClosePosition(_ context.Context, accountID, contractID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.failClose[contractID]; err != nil {
		return err
	}
	v.Closed = append(v.Closed, contractID)
	delete(v.positions[accountID], contractID)
	return nil
}

func (v *Venue) CancelOrder(_ context.Context, accountID, orderID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.failCancel[orderID]; err != nil {
		return err
	}
	v.Canceled = append(v.Canceled, orderID)
	delete(v.orders[accountID], orderID)
	return nil
}

func (v *Venue) SearchOpenPositions(_ context.Context, accountID string) ([]market.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]market.Position, 0, len(v.positions[accountID]))
	for _, p := range v.positions[accountID] {
		out = append(out, p)
	}
	return out, nil
}

func (v *Venue) SearchOpenOrders(_ context.Context, accountID string) ([]market.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]market.Order, 0, len(v.orders[accountID]))
	for _, o := range v.orders[accountID] {
		out = append(out, o)
	}
	return out, nil
}

func (v *Venue) PlaceOrder(_ context.Context, spec venue.OrderSpec) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.failPlace != nil {
		return "", v.failPlace
	}
	orderID := id.New()
	v.Placed = append(v.Placed, spec)
	byID, ok := v.orders[spec.AccountID]
	if !ok {
		byID = make(map[string]market.Order)
		v.orders[spec.AccountID] = byID
	}
	byID[orderID] = market.Order{
		AccountID:  spec.AccountID,
		OrderID:    orderID,
		ContractID: spec.ContractID,
		Side:       spec.Side,
		Kind:       spec.Kind,
		Quantity:   spec.Quantity,
		LimitPrice: spec.LimitPrice,
		StopPrice:  spec.StopPrice,
		Status:     market.StatusWorking,
	}
	return orderID, nil
}

func (v *Venue) ModifyOrder(_ context.Context, accountID, orderID string, changes venue.OrderChanges) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.failModify != nil {
		return v.failModify
	}
	o, ok := v.orders[accountID][orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if changes.Quantity != nil {
		o.Quantity = *changes.Quantity
	}
	if changes.LimitPrice != nil {
		o.LimitPrice = changes.LimitPrice
	}
	if changes.StopPrice != nil {
		o.StopPrice = changes.StopPrice
	}
	v.orders[accountID][orderID] = o
	v.Modified = append(v.Modified, orderID)
	return nil
}

func (v *Venue) ContractMetadata(_ context.Context, contractID string) (market.ContractMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	m, ok := v.metas[contractID]
	if !ok {
		return market.ContractMetadata{}, fmt.Errorf("contract %s not found", contractID)
	}
	return m, nil
}
