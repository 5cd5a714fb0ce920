// state/store.go
package state

import (
	"sync"

	"github.com/rustyeddy/riskd/market"
)

// Store is the authoritative in-memory mirror of open positions and working
// orders, keyed by account. Reads are snapshot-consistent with the most
// recently applied write for that account.
//
// Locking is per account: the outer map lock is only held long enough to
// find or create the account entry, so unrelated accounts never serialize
// on each other.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
}

type accountState struct {
	mu        sync.RWMutex
	positions map[string]market.Position // keyed by contract ID
	orders    map[string]market.Order    // keyed by order ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[string]*accountState)}
}

func (s *Store) account(id string) *accountState {
	s.mu.RLock()
	acct, ok := s.accounts[id]
	s.mu.RUnlock()
	if ok {
		return acct
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok = s.accounts[id]; ok {
		return acct
	}
	// An update for an unknown account implicitly creates it; the feed is
	// authoritative and a missing prior snapshot is not fatal.
	acct = &accountState{
		positions: make(map[string]market.Position),
		orders:    make(map[string]market.Order),
	}
	s.accounts[id] = acct
	return acct
}

// ApplyPosition replaces the position for (account, contract) wholesale.
// A zero quantity removes it.
func (s *Store) ApplyPosition(p market.Position) {
	acct := s.account(p.AccountID)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	if p.Quantity == 0 {
		delete(acct.positions, p.ContractID)
		return
	}
	acct.positions[p.ContractID] = p
}

// ApplyOrder upserts a working order, or removes it once the status is
// terminal.
func (s *Store) ApplyOrder(o market.Order) {
	acct := s.account(o.AccountID)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	if o.Status.Terminal() {
		delete(acct.orders, o.OrderID)
		return
	}
	acct.orders[o.OrderID] = o
}

// Positions returns a copy of the open positions for an account.
func (s *Store) Positions(accountID string) []market.Position {
	acct := s.account(accountID)
	acct.mu.RLock()
	defer acct.mu.RUnlock()

	out := make([]market.Position, 0, len(acct.positions))
	for _, p := range acct.positions {
		out = append(out, p)
	}
	return out
}

// Orders returns a copy of the working orders for an account.
func (s *Store) Orders(accountID string) []market.Order {
	acct := s.account(accountID)
	acct.mu.RLock()
	defer acct.mu.RUnlock()

	out := make([]market.Order, 0, len(acct.orders))
	for _, o := range acct.orders {
		out = append(out, o)
	}
	return out
}

// Position returns the position for one contract, if open.
func (s *Store) Position(accountID, contractID string) (market.Position, bool) {
	acct := s.account(accountID)
	acct.mu.RLock()
	defer acct.mu.RUnlock()

	p, ok := acct.positions[contractID]
	return p, ok
}

// NetContracts returns the signed sum of position quantities across all
// instruments for an account (long positive, short negative).
func (s *Store) NetContracts(accountID string) int {
	acct := s.account(accountID)
	acct.mu.RLock()
	defer acct.mu.RUnlock()

	net := 0
	for _, p := range acct.positions {
		net += p.SignedQuantity()
	}
	return net
}

// ContractCount returns the absolute quantity held in one contract.
func (s *Store) ContractCount(accountID, contractID string) int {
	acct := s.account(accountID)
	acct.mu.RLock()
	defer acct.mu.RUnlock()

	return acct.positions[contractID].Quantity
}

// Accounts returns the IDs of all accounts the store has seen.
func (s *Store) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		out = append(out, id)
	}
	return out
}
