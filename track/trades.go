// track/trades.go
package track

import (
	"sync"
	"time"
)

// WindowCounts is the rolling trade count per window.
type WindowCounts struct {
	Minute  int
	Hour    int
	Session int
}

// TradeCounter keeps a bounded rolling history of trade times per account
// for the frequency rules. History is pruned lazily on read; anything older
// than both one hour and the current session anchor is dropped.
type TradeCounter struct {
	mu      sync.Mutex
	times   map[string][]time.Time
	anchors map[string]time.Time // session start per account
}

// NewTradeCounter creates an empty counter.
func NewTradeCounter() *TradeCounter {
	return &TradeCounter{
		times:   make(map[string][]time.Time),
		anchors: make(map[string]time.Time),
	}
}

// Record notes one trade execution for an account.
func (c *TradeCounter) Record(accountID string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.times[accountID] = append(c.times[accountID], at)
}

// CountsInWindow returns the trades within the last minute, last hour, and
// the current session.
func (c *TradeCounter) CountsInWindow(accountID string, now time.Time) WindowCounts {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune(accountID, now)

	var counts WindowCounts
	minuteCut := now.Add(-time.Minute)
	hourCut := now.Add(-time.Hour)
	anchor := c.anchors[accountID]

	for _, at := range c.times[accountID] {
		if at.After(minuteCut) {
			counts.Minute++
		}
		if at.After(hourCut) {
			counts.Hour++
		}
		if anchor.IsZero() || !at.Before(anchor) {
			counts.Session++
		}
	}
	return counts
}

// ResetSession anchors a new session at now and drops older history.
func (c *TradeCounter) ResetSession(accountID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchors[accountID] = now
	c.prune(accountID, now)
}

// prune drops entries outside every window. Caller holds the lock.
func (c *TradeCounter) prune(accountID string, now time.Time) {
	cut := now.Add(-time.Hour)
	if anchor := c.anchors[accountID]; !anchor.IsZero() && anchor.Before(cut) {
		cut = anchor
	}

	kept := c.times[accountID][:0]
	for _, at := range c.times[accountID] {
		if !at.Before(cut) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(c.times, accountID)
		return
	}
	c.times[accountID] = kept
}

// History returns the retained trade times for an account, for persistence.
func (c *TradeCounter) History(accountID string) []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Time, len(c.times[accountID]))
	copy(out, c.times[accountID])
	return out
}

// RestoreHistory replaces the retained history for an account.
func (c *TradeCounter) RestoreHistory(accountID string, times []time.Time, anchor time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.times[accountID] = append([]time.Time(nil), times...)
	if !anchor.IsZero() {
		c.anchors[accountID] = anchor
	}
}

// Accounts returns every account with retained history.
func (c *TradeCounter) Accounts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.times))
	for id := range c.times {
		out = append(out, id)
	}
	return out
}
