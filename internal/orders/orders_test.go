package orders_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/merlinlabs/merlin-api/internal/chain"
	"github.com/merlinlabs/merlin-api/internal/orders"
	"github.com/merlinlabs/merlin-api/internal/types"
)

const (
	testWallet      = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	otherTestWallet = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&orders.LimitOrder{}))
	return db
}

func validInput() orders.CreateOrderInput {
	return orders.CreateOrderInput{
		WalletAddress: testWallet,
		TelegramID:    "12345",
		Token:         "USDC",
		Side:          "buy",
		TriggerKind:   "market_cap",
		TriggerValue:  "150",
		Amount:        "0.5",
		AmountKind:    "fixed",
	}
}

func TestCreateOrder(t *testing.T) {
	service := orders.NewService(newTestDB(t))

	order, err := service.CreateOrder(validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, types.StatusActive, order.Status)
	assert.Equal(t, testWallet, order.WalletAddress)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", order.TokenAddress)
	assert.Equal(t, "buy", order.Side)
	assert.Equal(t, "150", order.TriggerValue)
	assert.Equal(t, "0.5", order.Amount)
}

func TestCreateOrderValidation(t *testing.T) {
	service := orders.NewService(newTestDB(t))

	tests := []struct {
		name    string
		mutate  func(*orders.CreateOrderInput)
		wantErr error
	}{
		{
			name:    "bad wallet address",
			mutate:  func(in *orders.CreateOrderInput) { in.WalletAddress = "not-an-address" },
			wantErr: orders.ErrInvalidWalletAddress,
		},
		{
			name:    "unknown token",
			mutate:  func(in *orders.CreateOrderInput) { in.Token = "NOTATOKEN" },
			wantErr: orders.ErrInvalidToken,
		},
		{
			name:    "bad side",
			mutate:  func(in *orders.CreateOrderInput) { in.Side = "hold" },
			wantErr: types.ErrInvalidSide,
		},
		{
			name:    "bad trigger kind",
			mutate:  func(in *orders.CreateOrderInput) { in.TriggerKind = "volume" },
			wantErr: types.ErrInvalidTriggerKind,
		},
		{
			name:    "zero trigger value",
			mutate:  func(in *orders.CreateOrderInput) { in.TriggerValue = "0" },
			wantErr: types.ErrInvalidTriggerValue,
		},
		{
			name: "percentage out of range",
			mutate: func(in *orders.CreateOrderInput) {
				in.AmountKind = "percentage"
				in.Amount = "150"
			},
			wantErr: types.ErrInvalidAmountValue,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := service.CreateOrder(input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveTokenAddress(t *testing.T) {
	t.Parallel()

	address, err := orders.ResolveTokenAddress("eth")
	require.NoError(t, err)
	assert.Equal(t, chain.NativeTokenAddress, address)

	address, err = orders.ResolveTokenAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	require.NoError(t, err)
	assert.Equal(t, "0x6B175474E89094C44Da98b954EedeAC495271d0F", address)

	_, err = orders.ResolveTokenAddress("DOGECOIN")
	assert.ErrorIs(t, err, orders.ErrInvalidToken)
}

func TestListOrders(t *testing.T) {
	service := orders.NewService(newTestDB(t))

	for i := 0; i < 3; i++ {
		_, err := service.CreateOrder(validInput())
		require.NoError(t, err)
	}
	other := validInput()
	other.WalletAddress = otherTestWallet
	_, err := service.CreateOrder(other)
	require.NoError(t, err)

	result, err := service.ListOrders(orders.OwnerFilter{WalletAddress: testWallet})
	require.NoError(t, err)
	assert.Len(t, result, 3)

	result, err = service.ListOrders(orders.OwnerFilter{WalletAddress: testWallet, Status: types.StatusExecuted})
	require.NoError(t, err)
	assert.Empty(t, result)

	_, err = service.ListOrders(orders.OwnerFilter{})
	assert.Error(t, err)
}

func TestCancelOrder(t *testing.T) {
	service := orders.NewService(newTestDB(t))

	order, err := service.CreateOrder(validInput())
	require.NoError(t, err)

	cancelled, err := service.CancelOrder(order.OrderID, testWallet)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)

	// A second cancel finds the order no longer active.
	_, err = service.CancelOrder(order.OrderID, testWallet)
	assert.ErrorIs(t, err, orders.ErrNotActive)
}

func TestCancelOrderOwnership(t *testing.T) {
	service := orders.NewService(newTestDB(t))

	order, err := service.CreateOrder(validInput())
	require.NoError(t, err)

	_, err = service.CancelOrder(order.OrderID, otherTestWallet)
	assert.ErrorIs(t, err, orders.ErrNotOwner)

	// Case differences in the address do not defeat the ownership check.
	_, err = service.CancelOrder(order.OrderID, strings.ToLower(testWallet))
	require.NoError(t, err)
}

func TestCancelClaimedOrderRejected(t *testing.T) {
	db := newTestDB(t)
	service := orders.NewService(db)

	order, err := service.CreateOrder(validInput())
	require.NoError(t, err)
	require.NoError(t, service.DB().ClaimForExecution(order.OrderID))

	_, err = service.CancelOrder(order.OrderID, testWallet)
	assert.ErrorIs(t, err, orders.ErrNotActive)
}

func seedOrder(t *testing.T, db *orders.Database, status string, createdAt time.Time) *orders.LimitOrder {
	t.Helper()

	order := &orders.LimitOrder{
		OrderID:       uuid.New().String(),
		WalletAddress: testWallet,
		TelegramID:    "12345",
		TokenAddress:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Side:          "buy",
		TriggerKind:   "market_cap",
		TriggerValue:  "150",
		Amount:        "0.5",
		AmountKind:    "fixed",
		Status:        status,
	}
	order.CreatedAt = createdAt
	require.NoError(t, db.CreateOrder(order))
	return order
}

func TestListActiveOldestFirst(t *testing.T) {
	db := orders.NewDatabase(newTestDB(t))

	now := time.Now()
	newest := seedOrder(t, db, types.StatusActive, now)
	oldest := seedOrder(t, db, types.StatusActive, now.Add(-2*time.Hour))
	middle := seedOrder(t, db, types.StatusActive, now.Add(-time.Hour))
	seedOrder(t, db, types.StatusExecuted, now.Add(-3*time.Hour))
	seedOrder(t, db, types.StatusCancelled, now.Add(-3*time.Hour))

	active, err := db.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, oldest.OrderID, active[0].OrderID)
	assert.Equal(t, middle.OrderID, active[1].OrderID)
	assert.Equal(t, newest.OrderID, active[2].OrderID)
}

func TestClaimForExecutionIsExclusive(t *testing.T) {
	db := orders.NewDatabase(newTestDB(t))
	order := seedOrder(t, db, types.StatusActive, time.Now())

	require.NoError(t, db.ClaimForExecution(order.OrderID))

	// Whoever comes second, sweep or cancel, loses.
	assert.ErrorIs(t, db.ClaimForExecution(order.OrderID), orders.ErrClaimLost)
	assert.ErrorIs(t, db.Cancel(order.OrderID), orders.ErrClaimLost)
}

func TestReleaseToActive(t *testing.T) {
	db := orders.NewDatabase(newTestDB(t))
	order := seedOrder(t, db, types.StatusActive, time.Now())

	require.NoError(t, db.ClaimForExecution(order.OrderID))
	require.NoError(t, db.ReleaseToActive(order.OrderID, "aggregator unavailable"))

	reloaded, err := db.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, reloaded.Status)
	assert.Equal(t, "aggregator unavailable", reloaded.ErrorMessage)

	// Released orders can be claimed again on the next sweep.
	require.NoError(t, db.ClaimForExecution(order.OrderID))
}

func TestMarkExecuted(t *testing.T) {
	db := orders.NewDatabase(newTestDB(t))
	order := seedOrder(t, db, types.StatusActive, time.Now())

	// Finalizing requires holding the claim.
	assert.ErrorIs(t, db.MarkExecuted(order.OrderID, "0xabc", time.Now()), orders.ErrClaimLost)

	require.NoError(t, db.ClaimForExecution(order.OrderID))
	executedAt := time.Now()
	require.NoError(t, db.MarkExecuted(order.OrderID, "0xabc", executedAt))

	reloaded, err := db.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, reloaded.Status)
	assert.Equal(t, "0xabc", reloaded.TxHash)
	require.NotNil(t, reloaded.ExecutedAt)

	// Terminal: no further transitions take.
	assert.ErrorIs(t, db.ClaimForExecution(order.OrderID), orders.ErrClaimLost)
	assert.ErrorIs(t, db.Cancel(order.OrderID), orders.ErrClaimLost)
}

func TestMarkFailed(t *testing.T) {
	db := orders.NewDatabase(newTestDB(t))
	order := seedOrder(t, db, types.StatusActive, time.Now())

	require.NoError(t, db.ClaimForExecution(order.OrderID))
	require.NoError(t, db.MarkFailed(order.OrderID, "no custodial wallet on file"))

	reloaded, err := db.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, reloaded.Status)
	assert.Equal(t, "no custodial wallet on file", reloaded.ErrorMessage)
	assert.ErrorIs(t, db.ClaimForExecution(order.OrderID), orders.ErrClaimLost)
}
