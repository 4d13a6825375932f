package migrations

import (
	"gorm.io/gorm"
)

// AddSweepIndexes creates the indexes the sweep's hot queries rely on.
func AddSweepIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// The sweep loads active orders oldest first every cycle
		`CREATE INDEX IF NOT EXISTS idx_limit_orders_status_created_at
		 ON limit_orders(status, created_at)`,

		// Owner-scoped listings filter by wallet plus status
		`CREATE INDEX IF NOT EXISTS idx_limit_orders_wallet_status
		 ON limit_orders(wallet_address, status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
