// lockout/snapshot.go
package lockout

import (
	"encoding/json"
	"sort"
	"time"
)

// Snapshot is the persisted ledger content. Lockout state is
// safety-critical: a locked-out account must still be locked after a
// restart.
type Snapshot struct {
	TakenAt time.Time     `json:"taken_at"`
	Records []Record      `json:"records"`
	Symbols []SymbolBlock `json:"symbols,omitempty"`
}

// Snapshot copies the ledger content in deterministic order.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{TakenAt: time.Now().UTC()}
	for _, rec := range l.records {
		snap.Records = append(snap.Records, rec)
	}
	for _, roots := range l.symbols {
		for _, block := range roots {
			snap.Symbols = append(snap.Symbols, block)
		}
	}

	sort.Slice(snap.Records, func(i, j int) bool {
		return snap.Records[i].AccountID < snap.Records[j].AccountID
	})
	sort.Slice(snap.Symbols, func(i, j int) bool {
		a, b := snap.Symbols[i], snap.Symbols[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.SymbolRoot < b.SymbolRoot
	})
	return snap
}

// Restore replaces the ledger content with a snapshot.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make(map[string]Record, len(snap.Records))
	for _, rec := range snap.Records {
		l.records[rec.AccountID] = rec
	}
	l.symbols = make(map[string]map[string]SymbolBlock)
	for _, block := range snap.Symbols {
		roots, ok := l.symbols[block.AccountID]
		if !ok {
			roots = make(map[string]SymbolBlock)
			l.symbols[block.AccountID] = roots
		}
		roots[block.SymbolRoot] = block
	}
}

// Encode serializes the snapshot for the snapshot store.
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
