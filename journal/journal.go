// journal/journal.go
package journal

import "time"

// Outcome classifies how an enforcement action ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded" // some sub-actions failed
	OutcomeFailed   Outcome = "failed"   // no sub-action succeeded
)

// Record is one enforcement audit entry. The audit is append-only; the
// engine only needs a fire-and-forget write, and operational tooling reads
// it out-of-band.
type Record struct {
	RecordID   string    `json:"record_id"`
	At         time.Time `json:"at"`
	ActionType string    `json:"action_type"`
	AccountID  string    `json:"account_id"`
	RuleID     string    `json:"rule_id"`
	Reason     string    `json:"reason"`
	Outcome    Outcome   `json:"outcome"`
	Details    string    `json:"details"`
}

// Journal records enforcement actions.
type Journal interface {
	RecordEnforcement(Record) error
	Close() error
}
