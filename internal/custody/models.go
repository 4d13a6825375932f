package custody

import (
	"time"

	"gorm.io/gorm"
)

// CustodialWallet is one encrypted signing key held on a user's behalf. The
// record is keyed by the owner's Telegram id and is only ever removed by an
// explicit delete; imports re-encrypt in place.
type CustodialWallet struct {
	gorm.Model    `json:"-"`
	TelegramID    string    `gorm:"uniqueIndex" json:"telegram_id"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	PublicAddress string    `json:"public_address"`
	EncryptedKey  string    `json:"-"`
	Nonce         string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile carries optional display metadata supplied with a wallet request.
type Profile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
