package custody

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetWallet(telegramID string) (*CustodialWallet, error) {
	var wallet CustodialWallet
	if err := d.db.Where("telegram_id = ?", telegramID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpsertWallet creates the wallet record or replaces its key material and
// profile fields if one already exists for the Telegram id.
func (d *Database) UpsertWallet(wallet *CustodialWallet) error {
	var existing CustodialWallet
	err := d.db.Where("telegram_id = ?", wallet.TelegramID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d.db.Create(wallet).Error
	}
	if err != nil {
		return err
	}

	existing.Username = wallet.Username
	existing.FirstName = wallet.FirstName
	existing.LastName = wallet.LastName
	existing.PublicAddress = wallet.PublicAddress
	existing.EncryptedKey = wallet.EncryptedKey
	existing.Nonce = wallet.Nonce
	return d.db.Save(&existing).Error
}

func (d *Database) DeleteWallet(telegramID string) error {
	result := d.db.Where("telegram_id = ?", telegramID).Delete(&CustodialWallet{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
