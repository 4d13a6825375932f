// Package notify delivers execution outcomes to order owners.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/merlinlabs/merlin-api/internal/orders"
)

// Notifier reports an order's transition to its owner. Exactly one message
// is sent per state transition; sweeps that leave an order untouched send
// nothing. Delivery failures are logged, never folded back into order state.
type Notifier interface {
	OrderExecuted(ctx context.Context, order *orders.LimitOrder, txHash string)
	OrderFailed(ctx context.Context, order *orders.LimitOrder, reason string)
}

// LogNotifier is the fallback when no delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) OrderExecuted(_ context.Context, order *orders.LimitOrder, txHash string) {
	log.Info().
		Str("component", "notifier").
		Str("order_id", order.OrderID).
		Str("tx_hash", txHash).
		Msg("order executed (no delivery channel configured)")
}

func (LogNotifier) OrderFailed(_ context.Context, order *orders.LimitOrder, reason string) {
	log.Info().
		Str("component", "notifier").
		Str("order_id", order.OrderID).
		Str("reason", reason).
		Msg("order failed (no delivery channel configured)")
}
