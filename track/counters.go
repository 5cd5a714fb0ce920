// track/counters.go
package track

import (
	"encoding/json"
	"sort"
	"time"
)

// DailyCounters is the persisted daily risk exposure for one account:
// today's realized P&L plus the retained trade history feeding the
// frequency windows. Persisting it means a mid-day restart does not erase
// the exposure already accumulated.
type DailyCounters struct {
	AccountID    string      `json:"account_id"`
	Date         string      `json:"date"` // session date, YYYY-MM-DD
	RealizedPnL  float64     `json:"realized_pnl"`
	SessionStart time.Time   `json:"session_start"`
	TradeTimes   []time.Time `json:"trade_times,omitempty"`
}

// CounterSnapshot is the persisted set across all accounts.
type CounterSnapshot struct {
	TakenAt  time.Time       `json:"taken_at"`
	Counters []DailyCounters `json:"counters"`
}

// SnapshotCounters collects the daily counters from the trackers.
func SnapshotCounters(pnl *PnLTracker, trades *TradeCounter, date string) CounterSnapshot {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range pnl.Accounts() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range trades.Accounts() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	snap := CounterSnapshot{TakenAt: time.Now().UTC()}
	for _, id := range ids {
		trades.mu.Lock()
		anchor := trades.anchors[id]
		trades.mu.Unlock()

		snap.Counters = append(snap.Counters, DailyCounters{
			AccountID:    id,
			Date:         date,
			RealizedPnL:  pnl.DailyRealized(id),
			SessionStart: anchor,
			TradeTimes:   trades.History(id),
		})
	}
	return snap
}

// RestoreCounters loads a persisted snapshot back into the trackers.
// Entries for a different session date are skipped; the reset the process
// missed while down already invalidated them.
func RestoreCounters(snap CounterSnapshot, pnl *PnLTracker, trades *TradeCounter, date string) {
	for _, c := range snap.Counters {
		if c.Date != date {
			continue
		}
		pnl.SetRealized(c.AccountID, c.RealizedPnL)
		trades.RestoreHistory(c.AccountID, c.TradeTimes, c.SessionStart)
	}
}

// Encode serializes the snapshot for the snapshot store.
func (snap CounterSnapshot) Encode() ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeCounters parses a snapshot produced by Encode.
func DecodeCounters(data []byte) (CounterSnapshot, error) {
	var snap CounterSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return CounterSnapshot{}, err
	}
	return snap, nil
}
