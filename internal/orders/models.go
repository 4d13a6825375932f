package orders

import (
	"time"

	"gorm.io/gorm"

	"github.com/merlinlabs/merlin-api/internal/types"
)

// LimitOrder is a persisted conditional swap instruction. TriggerValue and
// Amount are stored in their validated string forms; ParsedTrigger and
// ParsedAmount re-materialize the typed variants.
type LimitOrder struct {
	gorm.Model    `json:"-"`
	OrderID       string     `gorm:"uniqueIndex" json:"order_id"`
	WalletAddress string     `gorm:"index" json:"wallet_address"`
	UserID        string     `gorm:"index" json:"user_id,omitempty"`
	TelegramID    string     `gorm:"index" json:"telegram_id,omitempty"`
	TokenAddress  string     `json:"token_address"`
	TokenSymbol   string     `json:"token_symbol,omitempty"`
	Side          string     `json:"side"`
	TriggerKind   string     `json:"trigger_kind"`
	TriggerValue  string     `json:"trigger_value"`
	Amount        string     `json:"amount"`
	AmountKind    string     `json:"amount_kind"`
	Status        string     `gorm:"index" json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	TxHash        string     `json:"tx_hash,omitempty"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ParsedTrigger returns the typed trigger variant. Stored values were
// validated at creation, so an error here means the row was modified out of
// band.
func (o *LimitOrder) ParsedTrigger() (types.Trigger, error) {
	return types.ParseTrigger(o.TriggerKind, o.TriggerValue)
}

// ParsedAmount returns the typed amount variant.
func (o *LimitOrder) ParsedAmount() (types.Amount, error) {
	return types.ParseAmount(o.AmountKind, o.Amount)
}

// ToResponse maps the order to its public representation.
func (o *LimitOrder) ToResponse() *types.OrderResponse {
	return &types.OrderResponse{
		OrderID:       o.OrderID,
		WalletAddress: o.WalletAddress,
		UserID:        o.UserID,
		TelegramID:    o.TelegramID,
		TokenAddress:  o.TokenAddress,
		TokenSymbol:   o.TokenSymbol,
		Side:          o.Side,
		TriggerKind:   o.TriggerKind,
		TriggerValue:  o.TriggerValue,
		Amount:        o.Amount,
		AmountKind:    o.AmountKind,
		Status:        o.Status,
		ErrorMessage:  o.ErrorMessage,
		TxHash:        o.TxHash,
		ExecutedAt:    o.ExecutedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// OwnerFilter selects orders by exactly one owner identity path, optionally
// narrowed by status.
type OwnerFilter struct {
	WalletAddress string
	UserID        string
	TelegramID    string
	Status        string
}

// Empty reports whether no identity is set at all.
func (f OwnerFilter) Empty() bool {
	return f.WalletAddress == "" && f.UserID == "" && f.TelegramID == ""
}
