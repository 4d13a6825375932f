package orders

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/merlinlabs/merlin-api/internal/types"
)

// ErrClaimLost is returned when a conditional status transition found the
// order no longer in the expected state: another sweep claimed it first, or
// the user cancelled it.
var ErrClaimLost = errors.New("orders: order not in expected status")

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOrder(order *LimitOrder) error {
	return d.db.Create(order).Error
}

func (d *Database) GetOrder(orderID string) (*LimitOrder, error) {
	var order LimitOrder
	if err := d.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByOwner returns the owner's orders, newest first.
func (d *Database) ListByOwner(filter OwnerFilter) ([]LimitOrder, error) {
	query := d.db.Model(&LimitOrder{})
	if filter.WalletAddress != "" {
		query = query.Where("wallet_address = ?", filter.WalletAddress)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TelegramID != "" {
		query = query.Where("telegram_id = ?", filter.TelegramID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var result []LimitOrder
	if err := query.Order("created_at DESC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ListActive returns every active order, oldest first, so earlier intents
// are honored first when several could match in one sweep.
func (d *Database) ListActive() ([]LimitOrder, error) {
	var result []LimitOrder
	if err := d.db.Where("status = ?", types.StatusActive).
		Order("created_at ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimForExecution atomically moves an order from active to executing. The
// conditional update is the at-most-once guard: under overlapping sweeps
// only one caller sees RowsAffected == 1, and it must win the claim before
// any external side effect happens. Losers get ErrClaimLost and skip the
// order silently.
func (d *Database) ClaimForExecution(orderID string) error {
	return d.transition(orderID, types.StatusActive, map[string]interface{}{
		"status": types.StatusExecuting,
	})
}

// ReleaseToActive returns a claimed order to the active pool after a
// transient failure, recording the most recent error.
func (d *Database) ReleaseToActive(orderID, errorMessage string) error {
	return d.transition(orderID, types.StatusExecuting, map[string]interface{}{
		"status":        types.StatusActive,
		"error_message": errorMessage,
	})
}

// MarkExecuted finalizes a claimed order. Because the claim held the
// executing status exclusively, an order can reach executed at most once.
func (d *Database) MarkExecuted(orderID, txHash string, executedAt time.Time) error {
	return d.transition(orderID, types.StatusExecuting, map[string]interface{}{
		"status":        types.StatusExecuted,
		"tx_hash":       txHash,
		"executed_at":   executedAt,
		"error_message": "",
	})
}

// MarkFailed ends a claimed order with a non-retryable failure.
func (d *Database) MarkFailed(orderID, errorMessage string) error {
	return d.transition(orderID, types.StatusExecuting, map[string]interface{}{
		"status":        types.StatusFailed,
		"error_message": errorMessage,
	})
}

// Cancel moves an active order to cancelled. It is rejected once a claim has
// been taken, so a swap in flight cannot be cancelled out from under the
// executor.
func (d *Database) Cancel(orderID string) error {
	return d.transition(orderID, types.StatusActive, map[string]interface{}{
		"status": types.StatusCancelled,
	})
}

func (d *Database) transition(orderID, fromStatus string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := d.db.Model(&LimitOrder{}).
		Where("order_id = ? AND status = ?", orderID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}
