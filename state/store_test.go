package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskd/market"
)

func pos(acct, contract string, dir market.Direction, qty int) market.Position {
	return market.Position{
		AccountID:    acct,
		ContractID:   contract,
		Direction:    dir,
		Quantity:     qty,
		AveragePrice: 100.0,
		OpenedAt:     time.Now().UTC(),
	}
}

func TestNetContracts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		positions []market.Position
		want      int
	}{
		{
			"all long",
			[]market.Position{pos("a", "ES", market.Long, 3), pos("a", "NQ", market.Long, 2)},
			5,
		},
		{
			"long and short net out",
			[]market.Position{pos("a", "ES", market.Long, 5), pos("a", "NQ", market.Short, 3)},
			2,
		},
		{
			"empty account",
			nil,
			0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewStore()
			for _, p := range tt.positions {
				s.ApplyPosition(p)
			}
			assert.Equal(t, tt.want, s.NetContracts("a"))
		})
	}
}

func TestApplyPosition_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ApplyPosition(pos("a", "ES", market.Long, 3))
	s.ApplyPosition(pos("a", "ES", market.Long, 5))

	require.Len(t, s.Positions("a"), 1)
	assert.Equal(t, 5, s.ContractCount("a", "ES"))
}

func TestApplyPosition_ZeroQuantityRemoves(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ApplyPosition(pos("a", "ES", market.Long, 3))
	s.ApplyPosition(pos("a", "ES", market.Long, 0))

	assert.Empty(t, s.Positions("a"))
	assert.Zero(t, s.ContractCount("a", "ES"))
}

func TestApplyOrder_TerminalStatusRemoves(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ord := market.Order{AccountID: "a", OrderID: "o1", ContractID: "ES", Side: market.Buy, Kind: market.Limit, Quantity: 1, Status: market.StatusWorking}
	s.ApplyOrder(ord)
	require.Len(t, s.Orders("a"), 1)

	ord.Status = market.StatusFilled
	s.ApplyOrder(ord)
	assert.Empty(t, s.Orders("a"))
}

func TestUnknownAccountIsImplicitlyCreated(t *testing.T) {
	t.Parallel()

	s := NewStore()
	assert.Empty(t, s.Positions("never-seen"))
	assert.Zero(t, s.NetContracts("never-seen"))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ApplyPosition(pos("a", "ES", market.Long, 3))
	s.ApplyPosition(pos("b", "NQ", market.Short, 2))
	s.ApplyOrder(market.Order{AccountID: "a", OrderID: "o1", ContractID: "ES", Side: market.Sell, Kind: market.Stop, Quantity: 3, Status: market.StatusWorking})

	data, err := s.Snapshot().Encode()
	require.NoError(t, err)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)

	restored := NewStore()
	restored.Restore(snap)

	assert.Equal(t, 3, restored.NetContracts("a"))
	assert.Equal(t, -2, restored.NetContracts("b"))
	assert.Len(t, restored.Orders("a"), 1)
	assert.Equal(t, s.Snapshot().Positions, restored.Snapshot().Positions)
	assert.Equal(t, s.Snapshot().Orders, restored.Snapshot().Orders)
}

func TestSnapshot_Deterministic(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ApplyPosition(pos("b", "NQ", market.Long, 1))
	s.ApplyPosition(pos("a", "ES", market.Long, 1))
	s.ApplyPosition(pos("a", "CL", market.Long, 1))

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first.Positions, second.Positions)
	require.Len(t, first.Positions, 3)
	assert.Equal(t, "a", first.Positions[0].AccountID)
	assert.Equal(t, "CL", first.Positions[0].ContractID)
}
