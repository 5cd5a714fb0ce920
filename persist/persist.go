// persist/persist.go
package persist

import "errors"

// ErrNoSnapshot is returned when a table has never been written.
var ErrNoSnapshot = errors.New("no snapshot")

// Store persists opaque snapshots by table name. The state store, lockout
// ledger and daily counters each own one table; format is theirs, only
// read/write-by-table semantics live here.
type Store interface {
	SaveSnapshot(table string, data []byte) error
	LoadSnapshot(table string) ([]byte, error)
	Close() error
}

// Well-known table names.
const (
	TableState     = "state"
	TableLockouts  = "lockouts"
	TableCounters  = "daily_counters"
	TableContracts = "contracts"
)
