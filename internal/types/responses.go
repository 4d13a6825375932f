package types

import "time"

// OrderResponse is the public representation of a limit order.
type OrderResponse struct {
	OrderID       string     `json:"order_id"`
	WalletAddress string     `json:"wallet_address"`
	UserID        string     `json:"user_id,omitempty"`
	TelegramID    string     `json:"telegram_id,omitempty"`
	TokenAddress  string     `json:"token_address"`
	TokenSymbol   string     `json:"token_symbol,omitempty"`
	Side          string     `json:"side"`
	TriggerKind   string     `json:"trigger_kind"`
	TriggerValue  string     `json:"trigger_value"`
	Amount        string     `json:"amount"`
	AmountKind    string     `json:"amount_kind"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	TxHash        string     `json:"tx_hash,omitempty"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SweepResults summarizes one full pass over the active orders.
type SweepResults struct {
	Checked  int      `json:"checked"`
	Executed int      `json:"executed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// WalletResponse is returned by custodial wallet endpoints. It never carries
// key material, encrypted or otherwise.
type WalletResponse struct {
	TelegramID string `json:"telegram_id"`
	Address    string `json:"address"`
}
