package trigger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlinlabs/merlin-api/internal/market"
	"github.com/merlinlabs/merlin-api/internal/trigger"
	"github.com/merlinlabs/merlin-api/internal/types"
)

func mustTrigger(t *testing.T, kind, value string) types.Trigger {
	t.Helper()
	trig, err := types.ParseTrigger(kind, value)
	require.NoError(t, err)
	return trig
}

func TestSatisfied(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		kind      string
		value     string
		price     string
		marketCap string
		want      bool
	}{
		{name: "market cap at threshold", kind: "market_cap", value: "50", marketCap: "50000", price: "1", want: true},
		{name: "market cap above threshold", kind: "market_cap", value: "50", marketCap: "80000", price: "1", want: true},
		{name: "market cap just below", kind: "market_cap", value: "50", marketCap: "49999", price: "1", want: false},
		{name: "market cap fractional threshold", kind: "market_cap", value: "0.5", marketCap: "500", price: "1", want: true},
		{name: "price at threshold", kind: "price", value: "0.004", price: "0.004", marketCap: "1", want: true},
		{name: "price above threshold", kind: "price", value: "0.004", price: "0.005", marketCap: "1", want: true},
		{name: "price below threshold", kind: "price", value: "0.004", price: "0.0039", marketCap: "1", want: false},
		{name: "side independent comparison", kind: "price", value: "100", price: "250", marketCap: "1", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := &market.Data{
				Price:     decimal.RequireFromString(tt.price),
				MarketCap: decimal.RequireFromString(tt.marketCap),
			}
			got := trigger.Satisfied(mustTrigger(t, tt.kind, tt.value), data)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSatisfiedNilData(t *testing.T) {
	t.Parallel()

	trig := mustTrigger(t, "price", "0.0001")
	assert.False(t, trigger.Satisfied(trig, nil))
}
