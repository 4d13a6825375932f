package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merlinlabs/merlin-api/internal/custody"
	"github.com/merlinlabs/merlin-api/internal/database/migrations"
	"github.com/merlinlabs/merlin-api/internal/orders"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&orders.LimitOrder{},
		&custody.CustodialWallet{},
	)
	if err != nil {
		return nil, err
	}

	if err := migrations.AddSweepIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
