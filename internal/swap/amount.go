package swap

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/merlinlabs/merlin-api/internal/types"
)

var (
	ErrAmountTooSmall      = errors.New("swap: amount too small to swap")
	ErrInsufficientBalance = errors.New("swap: insufficient balance")
)

// feeReserve is held back from "all" swaps so the settlement transaction
// itself can still pay network fees, expressed in whole instrument units.
var feeReserve = decimal.RequireFromString("0.01")

// ResolveAmount converts an order's requested amount into a concrete number
// of the instrument's smallest indivisible units, given the live balance in
// those units. Conversions always truncate: a resolved amount must never
// round up past what the balance can cover.
func ResolveAmount(amount types.Amount, balance *big.Int, decimals uint8) (*big.Int, error) {
	if balance == nil || balance.Sign() < 0 {
		return nil, ErrInsufficientBalance
	}

	var units decimal.Decimal
	switch amount.Kind {
	case types.AmountFixed:
		if !amount.Value.IsPositive() {
			return nil, ErrAmountTooSmall
		}
		units = amount.Value.Shift(int32(decimals)).Truncate(0)

	case types.AmountPercentage:
		if !amount.Value.IsPositive() || amount.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, ErrAmountTooSmall
		}
		// balance * percent / 100, truncated. Shift(-2) keeps the division
		// exact in decimal arithmetic.
		units = decimal.NewFromBigInt(balance, 0).Mul(amount.Value).Shift(-2).Truncate(0)

	case types.AmountAll:
		reserve := feeReserve.Shift(int32(decimals)).Truncate(0)
		units = decimal.NewFromBigInt(balance, 0).Sub(reserve)

	default:
		return nil, ErrAmountTooSmall
	}

	resolved := units.BigInt()
	if resolved.Sign() <= 0 {
		if amount.Kind == types.AmountAll {
			return nil, ErrInsufficientBalance
		}
		return nil, ErrAmountTooSmall
	}
	if resolved.Cmp(balance) > 0 {
		return nil, ErrInsufficientBalance
	}

	return resolved, nil
}
