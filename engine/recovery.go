// engine/recovery.go
package engine

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/riskd/internal/metrics"
	"github.com/rustyeddy/riskd/lockout"
	"github.com/rustyeddy/riskd/persist"
	"github.com/rustyeddy/riskd/state"
	"github.com/rustyeddy/riskd/track"
)

// Recover reloads persisted state after a restart: positions and orders,
// the lockout ledger, daily counters for the current session date, and the
// contract metadata cache. Quotes and timers are deliberately not restored;
// the feed repopulates one and the ledger's expiries cover the other.
func (e *Engine) Recover() error {
	if e.snaps == nil {
		return nil
	}

	if data, err := e.load(persist.TableState); err != nil {
		return err
	} else if data != nil {
		snap, err := state.DecodeSnapshot(data)
		if err != nil {
			return fmt.Errorf("decode state snapshot: %w", err)
		}
		e.deps.Store.Restore(snap)
		e.log.Info().Int("positions", len(snap.Positions)).Int("orders", len(snap.Orders)).
			Msg("state restored")
	}

	if data, err := e.load(persist.TableLockouts); err != nil {
		return err
	} else if data != nil {
		snap, err := lockout.DecodeSnapshot(data)
		if err != nil {
			return fmt.Errorf("decode lockout snapshot: %w", err)
		}
		e.deps.Ledger.Restore(snap)
		// Drop anything that expired while the process was down.
		for _, rec := range e.deps.Ledger.ExpireDue(e.now()) {
			e.log.Info().Str("account", rec.AccountID).Str("rule", rec.RuleID).
				Msg("lockout expired while down")
		}
		e.log.Info().Int("lockouts", len(snap.Records)).Msg("lockout ledger restored")
	}

	if data, err := e.load(persist.TableCounters); err != nil {
		return err
	} else if data != nil {
		snap, err := track.DecodeCounters(data)
		if err != nil {
			return fmt.Errorf("decode counter snapshot: %w", err)
		}
		track.RestoreCounters(snap, e.deps.PnL, e.deps.Trades, e.sessionDate())
		e.log.Info().Int("accounts", len(snap.Counters)).Msg("daily counters restored")
	}

	if data, err := e.load(persist.TableContracts); err != nil {
		return err
	} else if data != nil {
		snap, err := track.DecodeContractSnapshot(data)
		if err != nil {
			return fmt.Errorf("decode contract snapshot: %w", err)
		}
		e.deps.Contracts.Restore(snap)
	}

	return nil
}

// load fetches one table, mapping never-written to a nil payload.
func (e *Engine) load(table string) ([]byte, error) {
	data, err := e.snaps.LoadSnapshot(table)
	if errors.Is(err, persist.ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", table, err)
	}
	return data, nil
}

// Flush writes every persisted table. A failing table is logged and
// counted but does not stop the others; stale-but-present beats absent.
func (e *Engine) Flush() {
	if e.snaps == nil {
		return
	}

	e.save(persist.TableState, func() ([]byte, error) {
		return e.deps.Store.Snapshot().Encode()
	})
	e.save(persist.TableLockouts, func() ([]byte, error) {
		return e.deps.Ledger.Snapshot().Encode()
	})
	e.save(persist.TableCounters, func() ([]byte, error) {
		return track.SnapshotCounters(e.deps.PnL, e.deps.Trades, e.sessionDate()).Encode()
	})
	e.save(persist.TableContracts, func() ([]byte, error) {
		return e.deps.Contracts.Snapshot().Encode()
	})
}

func (e *Engine) save(table string, encode func() ([]byte, error)) {
	data, err := encode()
	if err == nil {
		err = e.snaps.SaveSnapshot(table, data)
	}
	if err != nil {
		metrics.PersistFailures.Inc()
		e.log.Error().Err(err).Str("table", table).Msg("snapshot flush failed")
	}
}

func (e *Engine) sessionDate() string {
	return e.sched.Calendar().SessionDate(e.now())
}
