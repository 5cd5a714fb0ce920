package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnrealizedPnL_LongRoundTrip(t *testing.T) {
	t.Parallel()

	meta := ContractMetadata{
		ContractID: "CON.F.US.MNQ.U5",
		TickSize:   0.25,
		TickValue:  0.50,
		SymbolRoot: "MNQ",
	}
	pos := Position{
		AccountID:    "acct-1",
		ContractID:   meta.ContractID,
		Direction:    Long,
		Quantity:     2,
		AveragePrice: 21000.50,
	}

	got := meta.UnrealizedPnL(pos, 21010.00)

	// ((21010.00 - 21000.50) / 0.25) * 0.50 * 2 = 38.0
	assert.InDelta(t, 38.0, got, 1e-9)
}

func TestUnrealizedPnL_ShortInvertsSign(t *testing.T) {
	t.Parallel()

	meta := ContractMetadata{TickSize: 0.25, TickValue: 0.50}
	pos := Position{Direction: Short, Quantity: 2, AveragePrice: 21000.50}

	got := meta.UnrealizedPnL(pos, 21010.00)

	assert.InDelta(t, -38.0, got, 1e-9)
}

func TestTicks_ZeroTickSize(t *testing.T) {
	t.Parallel()

	meta := ContractMetadata{TickSize: 0}
	assert.Zero(t, meta.Ticks(100, 110))
}

func TestSignedQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dir  Direction
		qty  int
		want int
	}{
		{"long", Long, 3, 3},
		{"short", Short, 3, -3},
		{"long zero", Long, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Position{Direction: tt.dir, Quantity: tt.qty}
			assert.Equal(t, tt.want, p.SignedQuantity())
		})
	}
}

func TestOrderProtective(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ord  Order
		dir  Direction
		want bool
	}{
		{"stop sell protects long", Order{Kind: Stop, Side: Sell}, Long, true},
		{"stop buy protects short", Order{Kind: Stop, Side: Buy}, Short, true},
		{"stop buy does not protect long", Order{Kind: Stop, Side: Buy}, Long, false},
		{"trailing stop sell protects long", Order{Kind: TrailingStop, Side: Sell}, Long, true},
		{"limit sell is not protective", Order{Kind: Limit, Side: Sell}, Long, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ord.Protective(tt.dir))
		})
	}
}

func TestQuoteAge(t *testing.T) {
	t.Parallel()

	now := time.Now()
	q := Quote{ObservedAt: now.Add(-3 * time.Second)}
	assert.Equal(t, 3*time.Second, q.Age(now))
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusWorking.Terminal())
	for _, s := range []OrderStatus{StatusFilled, StatusCancelled, StatusRejected, StatusExpired} {
		assert.True(t, s.Terminal(), string(s))
	}
}
