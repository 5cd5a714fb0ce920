// lockout/ledger.go
package lockout

import (
	"sort"
	"sync"
	"time"
)

// Kind distinguishes how a lockout ends.
type Kind string

const (
	// HardUntil persists until its timestamp, or indefinitely when
	// ExpiresAt is nil (cleared only by an external condition or an admin).
	HardUntil Kind = "hard_until"
	// Cooldown expires automatically after a fixed interval.
	Cooldown Kind = "cooldown"
)

// Record is one account-level lockout. ExpiresAt == nil means indefinite.
type Record struct {
	AccountID    string     `json:"account_id"`
	Reason       string     `json:"reason"`
	RuleID       string     `json:"rule_id"`
	Kind         Kind       `json:"kind"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ClearOnReset bool       `json:"clear_on_reset,omitempty"`
	LockedAt     time.Time  `json:"locked_at"`
}

// SymbolBlock is a per-symbol permanent lock created by the symbol-block
// rule. It survives daily resets and restarts.
type SymbolBlock struct {
	AccountID  string    `json:"account_id"`
	SymbolRoot string    `json:"symbol_root"`
	Reason     string    `json:"reason"`
	RuleID     string    `json:"rule_id"`
	LockedAt   time.Time `json:"locked_at"`
}

// Ledger is the authoritative per-account block state. It is the single
// gate consulted before any rule runs, and the durable source of truth for
// cooldown expiry: timers are a scheduling convenience rebuilt from the
// ledger, never the other way around.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]Record
	symbols map[string]map[string]SymbolBlock // account -> root -> block
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[string]Record),
		symbols: make(map[string]map[string]SymbolBlock),
	}
}

// IsLocked reports whether the account is blocked at the given instant. A
// record past its expiry no longer gates, even if the sweep has not removed
// it yet.
func (l *Ledger) IsLocked(accountID string, now time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[accountID]
	if !ok {
		return false
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Get returns the active record for an account, if any.
func (l *Ledger) Get(accountID string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[accountID]
	return rec, ok
}

// Lock installs a record unless the account is already locked. It returns
// true when the record was applied. Re-locking an already-locked account is
// a no-op so repeated breaches do not refresh an expiry.
func (l *Ledger) Lock(rec Record) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[rec.AccountID]; exists {
		return false
	}
	l.records[rec.AccountID] = rec
	return true
}

// Replace installs a record unconditionally, overwriting any existing lock.
func (l *Ledger) Replace(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.AccountID] = rec
}

// Clear removes the account lockout, returning true if one existed.
func (l *Ledger) Clear(accountID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.records[accountID]
	delete(l.records, accountID)
	return ok
}

// ExpireDue removes every record whose expiry has passed and returns the
// removed records in account order.
func (l *Ledger) ExpireDue(now time.Time) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []Record
	for id, rec := range l.records {
		if rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
			expired = append(expired, rec)
			delete(l.records, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].AccountID < expired[j].AccountID })
	return expired
}

// ResetClear removes the account lockout only when it is scoped to the
// session. Hard lockouts with an explicit timestamp, indefinite auth locks
// and symbol blocks are untouched.
func (l *Ledger) ResetClear(accountID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[accountID]
	if !ok || !rec.ClearOnReset {
		return false
	}
	delete(l.records, accountID)
	return true
}

// LockSymbol installs a permanent per-symbol block.
func (l *Ledger) LockSymbol(block SymbolBlock) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	roots, ok := l.symbols[block.AccountID]
	if !ok {
		roots = make(map[string]SymbolBlock)
		l.symbols[block.AccountID] = roots
	}
	if _, exists := roots[block.SymbolRoot]; exists {
		return false
	}
	roots[block.SymbolRoot] = block
	return true
}

// IsSymbolLocked reports whether a symbol root is blocked for the account.
func (l *Ledger) IsSymbolLocked(accountID, symbolRoot string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.symbols[accountID][symbolRoot]
	return ok
}

// ClearSymbol removes a per-symbol block.
func (l *Ledger) ClearSymbol(accountID, symbolRoot string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	roots := l.symbols[accountID]
	if _, ok := roots[symbolRoot]; !ok {
		return false
	}
	delete(roots, symbolRoot)
	if len(roots) == 0 {
		delete(l.symbols, accountID)
	}
	return true
}

// Accounts returns every account with an active lockout.
func (l *Ledger) Accounts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.records))
	for id := range l.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
