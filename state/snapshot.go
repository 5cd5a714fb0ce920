// state/snapshot.go
package state

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/rustyeddy/riskd/market"
)

// Snapshot captures all positions and working orders at a point in time.
// It is the unit persisted by the flush sweep and reloaded at startup;
// losing at most one flush interval of updates on a crash is accepted.
type Snapshot struct {
	TakenAt   time.Time         `json:"taken_at"`
	Positions []market.Position `json:"positions"`
	Orders    []market.Order    `json:"orders"`
}

// Snapshot copies the full store contents. Entries are sorted so two
// snapshots of identical state compare equal byte-for-byte.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	accts := make([]*accountState, 0, len(s.accounts))
	for _, acct := range s.accounts {
		accts = append(accts, acct)
	}
	s.mu.RUnlock()

	snap := Snapshot{TakenAt: time.Now().UTC()}
	for _, acct := range accts {
		acct.mu.RLock()
		for _, p := range acct.positions {
			snap.Positions = append(snap.Positions, p)
		}
		for _, o := range acct.orders {
			snap.Orders = append(snap.Orders, o)
		}
		acct.mu.RUnlock()
	}

	sort.Slice(snap.Positions, func(i, j int) bool {
		a, b := snap.Positions[i], snap.Positions[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.ContractID < b.ContractID
	})
	sort.Slice(snap.Orders, func(i, j int) bool {
		a, b := snap.Orders[i], snap.Orders[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.OrderID < b.OrderID
	})
	return snap
}

// Restore replaces the store contents with a snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	s.accounts = make(map[string]*accountState)
	s.mu.Unlock()

	for _, p := range snap.Positions {
		s.ApplyPosition(p)
	}
	for _, o := range snap.Orders {
		s.ApplyOrder(o)
	}
}

// Encode serializes a snapshot for the snapshot store.
func (snap Snapshot) Encode() ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot parses a snapshot produced by Encode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
