// Package trigger decides whether an order's arming condition currently
// holds.
package trigger

import (
	"github.com/shopspring/decimal"

	"github.com/merlinlabs/merlin-api/internal/market"
	"github.com/merlinlabs/merlin-api/internal/types"
)

var oneThousand = decimal.NewFromInt(1000)

// Satisfied reports whether the observed market data meets the trigger.
// Market cap triggers are expressed in thousands, so a trigger value of "50"
// fires at an observed market cap of 50,000 or more. Both trigger kinds are
// one-directional "has reached or exceeded" checks; the order's buy/sell
// side never changes the comparison.
//
// Missing market data is never a match: absence of data must not cause an
// execution.
func Satisfied(t types.Trigger, data *market.Data) bool {
	if data == nil {
		return false
	}

	switch t.Kind {
	case types.TriggerMarketCap:
		return data.MarketCap.Div(oneThousand).GreaterThanOrEqual(t.Value)
	case types.TriggerPrice:
		return data.Price.GreaterThanOrEqual(t.Value)
	default:
		return false
	}
}
