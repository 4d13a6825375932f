package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TriggerKind selects which market measurement arms an order.
type TriggerKind string

const (
	TriggerMarketCap TriggerKind = "market_cap"
	TriggerPrice     TriggerKind = "price"
)

// AmountKind describes how an order's requested amount is interpreted.
type AmountKind string

const (
	AmountFixed      AmountKind = "fixed"
	AmountPercentage AmountKind = "percentage"
	AmountAll        AmountKind = "all"
)

// Order lifecycle statuses. An order is claimed into StatusExecuting before
// any external side effect happens, so overlapping sweeps cannot execute it
// twice. StatusExecuted, StatusCancelled and StatusFailed are terminal.
const (
	StatusActive    = "active"
	StatusExecuting = "executing"
	StatusExecuted  = "executed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

var (
	ErrInvalidSide         = errors.New("side must be \"buy\" or \"sell\"")
	ErrInvalidTriggerKind  = errors.New("trigger kind must be \"market_cap\" or \"price\"")
	ErrInvalidTriggerValue = errors.New("trigger value must be a positive number")
	ErrInvalidAmountKind   = errors.New("amount kind must be \"fixed\", \"percentage\" or \"all\"")
	ErrInvalidAmountValue  = errors.New("amount must be a positive number")
)

// ParseSide validates a raw order direction.
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(raw)) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", ErrInvalidSide
	}
}

// Trigger is the validated form of an order's arming condition.
// Market cap values are expressed in thousands of currency units.
type Trigger struct {
	Kind  TriggerKind
	Value decimal.Decimal
}

// ParseTrigger validates a trigger kind and its raw numeric value. The value
// must be a positive number; internal code never re-parses the string form.
func ParseTrigger(kind, raw string) (Trigger, error) {
	k := TriggerKind(strings.ToLower(kind))
	if k != TriggerMarketCap && k != TriggerPrice {
		return Trigger{}, ErrInvalidTriggerKind
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: %q", ErrInvalidTriggerValue, raw)
	}
	if !value.IsPositive() {
		return Trigger{}, fmt.Errorf("%w: got %s", ErrInvalidTriggerValue, value)
	}

	return Trigger{Kind: k, Value: value}, nil
}

// Describe renders the trigger the way it is shown to users, e.g.
// "150k market cap" or "$0.004 price".
func (t Trigger) Describe() string {
	if t.Kind == TriggerMarketCap {
		return fmt.Sprintf("%sk market cap", t.Value)
	}
	return fmt.Sprintf("$%s price", t.Value)
}

// Amount is the validated form of an order's requested quantity.
// For AmountAll the Value field is zero and unused.
type Amount struct {
	Kind  AmountKind
	Value decimal.Decimal
}

// ParseAmount validates an amount kind and its raw value. Fixed amounts must
// be positive numbers, percentages must fall in (0, 100], and "all" carries
// no number at all. The sentinel string "all" in the raw value is accepted as
// AmountAll regardless of the declared kind, matching how order sources
// phrase it.
func ParseAmount(kind, raw string) (Amount, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	k := AmountKind(strings.ToLower(kind))

	if k == AmountAll || raw == "all" || (raw == "" && kind == "") {
		return Amount{Kind: AmountAll}, nil
	}

	switch k {
	case AmountFixed:
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmountValue, raw)
		}
		if !value.IsPositive() {
			return Amount{}, fmt.Errorf("%w: got %s", ErrInvalidAmountValue, value)
		}
		return Amount{Kind: AmountFixed, Value: value}, nil

	case AmountPercentage:
		value, err := decimal.NewFromString(strings.TrimSuffix(raw, "%"))
		if err != nil {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmountValue, raw)
		}
		if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(100)) {
			return Amount{}, fmt.Errorf("%w: percentage must be in (0, 100], got %s", ErrInvalidAmountValue, value)
		}
		return Amount{Kind: AmountPercentage, Value: value}, nil

	default:
		return Amount{}, ErrInvalidAmountKind
	}
}

// Describe renders the amount for notifications: "0.5", "50%" or "all".
func (a Amount) Describe() string {
	switch a.Kind {
	case AmountPercentage:
		return a.Value.String() + "%"
	case AmountAll:
		return "all"
	default:
		return a.Value.String()
	}
}
